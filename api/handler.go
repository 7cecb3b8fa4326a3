// Package api exposes the relation-tuple service over HTTP+JSON. The
// surface is consumed by two collaborators: a Policy Enforcement Point
// calling check once per request it authorizes (failing closed on any error
// or timeout), and administrators writing tuples and inspecting access via
// expand.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/relato/relato/audit"
	"github.com/relato/relato/engine"
	"github.com/relato/relato/namespace"
	"github.com/relato/relato/tuple"
)

type Handler struct {
	store    tuple.Store
	registry *namespace.Registry
	checker  engine.CheckEngine
	expander *engine.Expander
	audits   audit.Store

	// onWrite runs after any successful tuple mutation; wired to the
	// decision cache purge when caching is enabled.
	onWrite func(ctx context.Context)
}

func NewHandler(store tuple.Store, registry *namespace.Registry, checker engine.CheckEngine, expander *engine.Expander) *Handler {
	if registry == nil {
		registry = namespace.NewRegistry()
	}
	return &Handler{store: store, registry: registry, checker: checker, expander: expander}
}

// SetAuditStore enables audit events for tuple mutations.
func (h *Handler) SetAuditStore(store audit.Store) {
	h.audits = store
}

// SetWriteHook registers a callback invoked after successful mutations.
func (h *Handler) SetWriteHook(fn func(ctx context.Context)) {
	h.onWrite = fn
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.PUT("/relation-tuples", h.HandleWrite)
	g.DELETE("/relation-tuples", h.HandleDelete)
	g.GET("/relation-tuples", h.HandleList)
	g.GET("/relation-tuples/check", h.HandleCheck)
	g.POST("/relation-tuples/check", h.HandleCheckBody)
	g.GET("/relation-tuples/expand", h.HandleExpand)
	g.GET("/audit-events", h.HandleAuditEvents)
}

// writeRequest is the PUT body: exactly one of subject_id and subject_set.
type writeRequest struct {
	Namespace  string            `json:"namespace"`
	Object     string            `json:"object"`
	Relation   string            `json:"relation"`
	SubjectID  string            `json:"subject_id,omitempty"`
	SubjectSet *tuple.SubjectSet `json:"subject_set,omitempty"`
}

func (h *Handler) HandleWrite(c echo.Context) error {
	var body writeRequest
	if err := c.Bind(&body); err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid request body", err)
	}

	t := tuple.Tuple{
		Namespace:  body.Namespace,
		Object:     body.Object,
		Relation:   body.Relation,
		SubjectID:  body.SubjectID,
		SubjectSet: body.SubjectSet,
	}
	if err := t.Validate(); err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid relation tuple", err)
	}
	if err := h.registry.Validate(t.Namespace, t.Relation); err != nil {
		return h.Error(c, http.StatusBadRequest, "Unknown namespace or relation", err)
	}

	if err := h.store.Write(c.Request().Context(), t); err != nil {
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}

	h.afterWrite(c, audit.TypeTupleWrite, t.Namespace, t.Object, t.Relation, t.Subject())
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) HandleDelete(c echo.Context) error {
	f := tuple.Filter{
		Namespace: c.QueryParam("namespace"),
		Object:    c.QueryParam("object"),
		Relation:  c.QueryParam("relation"),
		SubjectID: c.QueryParam("subject_id"),
	}
	if subject := c.QueryParam("subject_set"); subject != "" {
		_, set, err := tuple.ParseSubject(subject)
		if err != nil || set == nil {
			return h.Error(c, http.StatusBadRequest, "Invalid subject_set", err)
		}
		f.SubjectSet = set
	}
	if f.Namespace == "" {
		return h.Error(c, http.StatusBadRequest, "Namespace is required", nil)
	}

	deleted, err := h.store.Delete(c.Request().Context(), f)
	if err != nil {
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}

	subject := f.SubjectID
	if f.SubjectSet != nil {
		subject = f.SubjectSet.String()
	}
	h.afterWrite(c, audit.TypeTupleDelete, f.Namespace, f.Object, f.Relation, subject)
	return c.JSON(http.StatusOK, map[string]any{"deleted": deleted})
}

func (h *Handler) HandleList(c echo.Context) error {
	f := tuple.Filter{
		Namespace: c.QueryParam("namespace"),
		Object:    c.QueryParam("object"),
		Relation:  c.QueryParam("relation"),
		SubjectID: c.QueryParam("subject_id"),
	}

	tuples, err := h.store.List(c.Request().Context(), f)
	if err != nil {
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}
	if tuples == nil {
		tuples = []tuple.Tuple{}
	}
	return c.JSON(http.StatusOK, map[string]any{"relation_tuples": tuples})
}

func (h *Handler) HandleCheck(c echo.Context) error {
	maxDepth, err := parseMaxDepth(c.QueryParam("max-depth"))
	if err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid max-depth", err)
	}
	return h.check(c,
		c.QueryParam("namespace"),
		c.QueryParam("object"),
		c.QueryParam("relation"),
		c.QueryParam("subject_id"),
		maxDepth,
	)
}

// checkRequest is the POST body variant of the check query.
type checkRequest struct {
	Namespace string `json:"namespace"`
	Object    string `json:"object"`
	Relation  string `json:"relation"`
	SubjectID string `json:"subject_id"`
	MaxDepth  int    `json:"max_depth,omitempty"`
}

func (h *Handler) HandleCheckBody(c echo.Context) error {
	var body checkRequest
	if err := c.Bind(&body); err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid request body", err)
	}
	return h.check(c, body.Namespace, body.Object, body.Relation, body.SubjectID, body.MaxDepth)
}

func (h *Handler) check(c echo.Context, ns, object, relation, subjectID string, maxDepth int) error {
	result, err := h.checker.Check(c.Request().Context(), ns, object, relation, subjectID, maxDepth)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrTimeout):
			// Distinct from deny: the caller must fail closed on its own.
			return h.Error(c, http.StatusGatewayTimeout, "Check timed out", err)
		case errors.Is(err, tuple.ErrInvalidSubject), errors.Is(err, engine.ErrInvalidQuery):
			return h.Error(c, http.StatusBadRequest, "Invalid check query", err)
		default:
			return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
		}
	}

	resp := map[string]any{"allowed": result.Allowed}
	if result.DepthExhausted {
		resp["depth_exhausted"] = true
	}
	status := http.StatusOK
	if !result.Allowed {
		status = http.StatusForbidden
	}
	return c.JSON(status, resp)
}

func (h *Handler) HandleExpand(c echo.Context) error {
	maxDepth, err := parseMaxDepth(c.QueryParam("max-depth"))
	if err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid max-depth", err)
	}

	tree, err := h.expander.Expand(c.Request().Context(),
		c.QueryParam("namespace"),
		c.QueryParam("object"),
		c.QueryParam("relation"),
		maxDepth,
	)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrTimeout):
			return h.Error(c, http.StatusGatewayTimeout, "Expand timed out", err)
		case errors.Is(err, tuple.ErrInvalidSubject), errors.Is(err, engine.ErrInvalidQuery):
			return h.Error(c, http.StatusBadRequest, "Invalid expand query", err)
		default:
			return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
		}
	}
	return c.JSON(http.StatusOK, tree)
}

func (h *Handler) HandleAuditEvents(c echo.Context) error {
	if h.audits == nil {
		return h.Error(c, http.StatusNotFound, "Audit log not enabled", nil)
	}
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return h.Error(c, http.StatusBadRequest, "Invalid limit", err)
		}
		limit = parsed
	}
	events, err := h.audits.ListEvents(c.Request().Context(), limit)
	if err != nil {
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}

// afterWrite fires the write hook and records an audit event. The hook
// runs synchronously so the decision cache is invalidated before the
// response is sent; only the audit write is detached.
func (h *Handler) afterWrite(c echo.Context, eventType, ns, object, relation, subject string) {
	if h.onWrite != nil {
		h.onWrite(c.Request().Context())
	}
	if h.audits == nil {
		return
	}
	event := audit.NewEvent(eventType, "success", eventType)
	event.Namespace = ns
	event.Object = object
	event.Relation = relation
	event.Subject = subject
	event.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	event.Metadata, _ = json.Marshal(map[string]string{"remote_ip": c.RealIP()})
	go h.audits.SaveEvent(context.Background(), event)
}

func parseMaxDepth(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// Helper for professional errors
func (h *Handler) Error(c echo.Context, code int, message string, err error) error {
	resp := map[string]interface{}{
		"status": message,
		"code":   code,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(code, resp)
}
