package main

import (
	"fmt"
	"strings"
)

// ---- Tuple Commands ----

var tupleQueryNames = map[string]string{
	"namespace":   "namespace",
	"object":      "object",
	"relation":    "relation",
	"subject-id":  "subject_id",
	"subject-set": "subject_set",
}

func (c *CLI) tupleCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: relato-cli tuple <write|delete|list> [options]")
	}

	sub := args[0]
	opts := parseArgs(args[1:])

	switch sub {
	case "write":
		return c.tupleWrite(opts)
	case "delete":
		return c.tupleDelete(opts)
	case "list":
		return c.tupleList(opts)
	default:
		return fmt.Errorf("unknown tuple subcommand: %s", sub)
	}
}

func (c *CLI) tupleWrite(opts map[string]string) error {
	body := map[string]any{
		"namespace": opts["namespace"],
		"object":    opts["object"],
		"relation":  opts["relation"],
	}
	if id := opts["subject-id"]; id != "" {
		body["subject_id"] = id
	}
	if set := opts["subject-set"]; set != "" {
		parsed, err := parseSubjectSetArg(set)
		if err != nil {
			return err
		}
		body["subject_set"] = parsed
	}

	resp, err := c.put("/relation-tuples", body)
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

func (c *CLI) tupleDelete(opts map[string]string) error {
	if opts["namespace"] == "" {
		return fmt.Errorf("--namespace is required")
	}
	resp, err := c.delete("/relation-tuples" + buildQuery(opts, tupleQueryNames))
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

func (c *CLI) tupleList(opts map[string]string) error {
	resp, err := c.get("/relation-tuples" + buildQuery(opts, tupleQueryNames))
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

// parseSubjectSetArg splits "ns:obj#rel" the same way the server does:
// namespace up to the first ':', relation after the last '#'.
func parseSubjectSetArg(s string) (map[string]string, error) {
	hash := strings.LastIndex(s, "#")
	if hash < 0 {
		return nil, fmt.Errorf("subject set %q must have the form namespace:object#relation", s)
	}
	rest := s[:hash]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return nil, fmt.Errorf("subject set %q is missing a namespace", s)
	}
	return map[string]string{
		"namespace": rest[:colon],
		"object":    rest[colon+1:],
		"relation":  s[hash+1:],
	}, nil
}
