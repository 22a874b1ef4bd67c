package apiserver

import (
	"io"
	"net/http"
	"strconv"

	"atlasgraph.dev/atlas/atlaserrors"
	"atlasgraph.dev/atlas/query"
	"atlasgraph.dev/atlas/records"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerRoutes() {
	e := s.Echo

	e.GET("/health", s.handleHealth)
	e.GET("/contexts", s.handleListContexts)
	e.GET("/contexts/:context", s.handleGetContext)
	e.GET("/contexts/:context/states", s.handleListStates)
	e.GET("/contexts/:context/states/:state", s.handleGetState)
	e.GET("/contexts/:context/states/:state/outgoing", s.handleListOutgoing)
	e.GET("/contexts/:context/states/:state/incoming", s.handleListIncoming)
	e.GET("/contexts/:context/transitions", s.handleListTransitions)
	e.GET("/contexts/:context/transitions/:transition", s.handleGetTransition)
	e.GET("/contexts/:context/path", s.handleShortestPath)

	e.POST("/ingest/context", s.handleIngestContext)
	e.POST("/ingest/state", s.handleIngestState)
	e.POST("/ingest/states", s.handleIngestStates)
	e.POST("/ingest/transition", s.handleIngestTransition)
	e.POST("/ingest/transitions", s.handleIngestTransitions)
	e.POST("/ingest/bundle", s.handleIngestBundle)

	e.GET("/workflows", s.handleListWorkflows)
	e.GET("/workflows/:workflow", s.handleGetWorkflow)
	e.POST("/workflows", s.handleUpsertWorkflow)
	e.DELETE("/workflows/:workflow", s.handleDeleteWorkflow)
}

func (s *Server) handleHealth(c echo.Context) error {
	summary, err := s.querier.Health()
	if err != nil {
		return err
	}
	resp := map[string]interface{}{
		"status":  summary.Status,
		"details": summary.Details,
		"uptime":  timeSinceStartSeconds(s.started),
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListContexts(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"contexts": s.querier.ListContexts()})
}

func (s *Server) handleGetContext(c echo.Context) error {
	ctx, err := s.querier.GetContext(c.Param("context"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"context": ctx})
}

func stateFilterFromQuery(c echo.Context) query.StateFilter {
	return query.StateFilter{
		Tag:          c.QueryParam("tag"),
		Source:       c.QueryParam("source"),
		ReviewStatus: c.QueryParam("review_status"),
	}
}

func transitionFilterFromQuery(c echo.Context) query.TransitionFilter {
	return query.TransitionFilter{
		Source:       c.QueryParam("source"),
		ReviewStatus: c.QueryParam("review_status"),
		IntentID:     c.QueryParam("intent_id"),
	}
}

func (s *Server) handleListStates(c echo.Context) error {
	states, err := s.querier.ListStates(c.Param("context"), stateFilterFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, states)
}

func (s *Server) handleGetState(c echo.Context) error {
	states, err := s.querier.ListStates(c.Param("context"), query.StateFilter{})
	if err != nil {
		return err
	}
	for _, st := range states {
		if st.State.ID == c.Param("state") {
			return c.JSON(http.StatusOK, st)
		}
	}
	return atlaserrors.New(atlaserrors.KindNotFound, "state %q not found", c.Param("state"))
}

func (s *Server) handleListOutgoing(c echo.Context) error {
	out, err := s.querier.ListOutgoing(c.Param("context"), c.Param("state"), transitionFilterFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListIncoming(c echo.Context) error {
	in, err := s.querier.ListIncoming(c.Param("context"), c.Param("state"), transitionFilterFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, in)
}

func (s *Server) handleListTransitions(c echo.Context) error {
	transitions, err := s.querier.ListTransitions(c.Param("context"), transitionFilterFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transitions)
}

func (s *Server) handleGetTransition(c echo.Context) error {
	transitions, err := s.querier.ListTransitions(c.Param("context"), query.TransitionFilter{})
	if err != nil {
		return err
	}
	for _, t := range transitions {
		if t.Transition.ID == c.Param("transition") {
			return c.JSON(http.StatusOK, t)
		}
	}
	return atlaserrors.New(atlaserrors.KindNotFound, "transition %q not found", c.Param("transition"))
}

func (s *Server) handleShortestPath(c echo.Context) error {
	source := c.QueryParam("source")
	target := c.QueryParam("target")
	if source == "" || target == "" {
		return atlaserrors.New(atlaserrors.KindValidationFailure, "source and target query parameters are required")
	}

	var maxDepth *int
	if raw := c.QueryParam("max_depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return atlaserrors.New(atlaserrors.KindValidationFailure, "max_depth must be an integer")
		}
		maxDepth = &d
	}

	result, err := s.querier.ShortestPath(c.Param("context"), source, target, maxDepth)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, atlaserrors.Wrap(atlaserrors.KindValidationFailure, err, "failed to read request body")
	}
	return body, nil
}

func (s *Server) handleIngestContext(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	overwrite := c.QueryParam("overwrite") == "true"
	ctx, err := s.ingestor.IngestContext(body, overwrite)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ctx)
}

func (s *Server) handleIngestState(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	rec, err := s.ingestor.IngestStateRecord(body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleIngestStates(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var payloads []rawMessage
	if decodeErr := decodeJSON(body, &payloads); decodeErr != nil {
		return decodeErr
	}
	result, err := s.ingestor.IngestStates(toRawMessages(payloads))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleIngestTransition(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	rec, err := s.ingestor.IngestTransitionRecord(body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleIngestTransitions(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var payloads []rawMessage
	if decodeErr := decodeJSON(body, &payloads); decodeErr != nil {
		return decodeErr
	}
	result, err := s.ingestor.IngestTransitions(toRawMessages(payloads))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleIngestBundle(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	result, err := s.ingestor.IngestBundle(body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListWorkflows(c echo.Context) error {
	filter := workflowFilterFromQuery(c)
	return c.JSON(http.StatusOK, s.workflows.ListWorkflows(filter))
}

func (s *Server) handleGetWorkflow(c echo.Context) error {
	expand := c.QueryParam("expand") == "true"
	wf, err := s.workflows.GetWorkflow(c.Param("workflow"), expand)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wf)
}

func (s *Server) handleUpsertWorkflow(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var wf records.Workflow
	if decodeErr := decodeJSON(body, &wf); decodeErr != nil {
		return decodeErr
	}
	if err := s.workflows.UpsertWorkflow(wf); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wf)
}

func (s *Server) handleDeleteWorkflow(c echo.Context) error {
	deleted := s.workflows.DeleteWorkflow(c.Param("workflow"))
	return c.JSON(http.StatusOK, map[string]bool{"deleted": deleted})
}
