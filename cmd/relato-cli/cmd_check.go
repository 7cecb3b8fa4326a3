package main

import (
	"fmt"
)

// ---- Check / Expand / Audit / Health Commands ----

var checkQueryNames = map[string]string{
	"namespace":  "namespace",
	"object":     "object",
	"relation":   "relation",
	"subject-id": "subject_id",
	"max-depth":  "max-depth",
}

func (c *CLI) checkCommand(args []string) error {
	opts := parseArgs(args)
	for _, required := range []string{"namespace", "object", "relation", "subject-id"} {
		if opts[required] == "" {
			return fmt.Errorf("--%s is required", required)
		}
	}

	resp, err := c.get("/relation-tuples/check" + buildQuery(opts, checkQueryNames))
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

func (c *CLI) expandCommand(args []string) error {
	opts := parseArgs(args)
	for _, required := range []string{"namespace", "object", "relation"} {
		if opts[required] == "" {
			return fmt.Errorf("--%s is required", required)
		}
	}

	resp, err := c.get("/relation-tuples/expand" + buildQuery(opts, checkQueryNames))
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

func (c *CLI) auditCommand(args []string) error {
	opts := parseArgs(args)
	resp, err := c.get("/audit-events" + buildQuery(opts, map[string]string{"limit": "limit"}))
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

func (c *CLI) healthCommand(args []string) error {
	sub := "full"
	if len(args) > 0 {
		sub = args[0]
	}

	var path string
	switch sub {
	case "alive", "live":
		path = "/health/alive"
	case "ready":
		path = "/health/ready"
	case "full":
		path = "/health"
	default:
		return fmt.Errorf("unknown health subcommand: %s", sub)
	}

	resp, err := c.get(path)
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}
