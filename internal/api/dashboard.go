package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rewired-gh/fishrank/internal/dashboard"
	"github.com/rewired-gh/fishrank/internal/logger"
	"github.com/rewired-gh/fishrank/internal/models"
)

// maxTrendMonths bounds ?months=. Without it the window is
// ranking.DefaultTrendMonths (or ranking.trend_months) long, so trends past
// six points only appear when a caller asks for them.
const maxTrendMonths = 24

// viewRequest is the parsed form of an actor route
type viewRequest struct {
	ActorID  string
	Province string
	Period   models.Period
	Months   int
}

// parseViewRequest reads the actor path variable and the year, month,
// province and months query parameters. A missing year or month falls back
// to the current one.
func (c *Controller) parseViewRequest(r *http.Request) (viewRequest, error) {
	q := r.URL.Query()
	now := models.PeriodOf(c.Now())

	req := viewRequest{
		ActorID:  mux.Vars(r)["actor"],
		Province: q.Get("province"),
		Period:   now,
	}

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid year %q", v)
		}
		req.Period.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid month %q", v)
		}
		req.Period.Month = month
	}
	if err := req.Period.Validate(); err != nil {
		return req, err
	}

	if v := q.Get("months"); v != "" {
		months, err := strconv.Atoi(v)
		if err != nil || months < 1 || months > maxTrendMonths {
			return req, fmt.Errorf("months must be an integer between 1 and %d", maxTrendMonths)
		}
		req.Months = months
	}

	return req, nil
}

// resolve parses the request and resolves its viewer, writing the error
// response itself when either step fails.
func (c *Controller) resolve(w http.ResponseWriter, r *http.Request) (viewRequest, *dashboard.Viewer, bool) {
	req, err := c.parseViewRequest(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return req, nil, false
	}
	viewer, err := c.Service.Resolve(r.Context(), req.ActorID, req.Province)
	if err != nil {
		c.handleServiceError(w, req, err)
		return req, nil, false
	}
	return req, viewer, true
}

func (c *Controller) handleServiceError(w http.ResponseWriter, req viewRequest, err error) {
	if errors.Is(err, dashboard.ErrUnknownActor) {
		c.writeError(w, http.StatusNotFound, "actor not found")
		return
	}
	logger.Error("Request for actor %s at %s failed: %v", req.ActorID, req.Period, err)
	c.writeError(w, http.StatusInternalServerError, "failed to load data")
}

// HandleDashboard returns every section. Failed sections are null and listed
// under "errors".
func (c *Controller) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := c.parseViewRequest(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := c.Service.Build(r.Context(), dashboard.Query{
		ActorID:     req.ActorID,
		Province:    req.Province,
		Period:      req.Period,
		TrendMonths: req.Months,
	})
	if err != nil {
		c.handleServiceError(w, req, err)
		return
	}
	c.writeJSON(w, http.StatusOK, d)
}

// HandleLeaderboard returns the bounded leaderboard, null when fewer than two
// actors reported.
func (c *Controller) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	req, viewer, ok := c.resolve(w, r)
	if !ok {
		return
	}
	lb, err := c.Service.Leaderboard(r.Context(), viewer, req.Period)
	if err != nil {
		c.handleServiceError(w, req, err)
		return
	}
	c.writeJSON(w, http.StatusOK, lb)
}

// HandleComparison returns the peer comparison, null when no peer reported.
func (c *Controller) HandleComparison(w http.ResponseWriter, r *http.Request) {
	req, viewer, ok := c.resolve(w, r)
	if !ok {
		return
	}
	cmp, err := c.Service.Comparison(r.Context(), viewer, req.Period)
	if err != nil {
		c.handleServiceError(w, req, err)
		return
	}
	c.writeJSON(w, http.StatusOK, cmp)
}

// HandleTrend returns the rank trend ending at the requested month.
func (c *Controller) HandleTrend(w http.ResponseWriter, r *http.Request) {
	req, viewer, ok := c.resolve(w, r)
	if !ok {
		return
	}
	points, err := c.Service.Trend(r.Context(), viewer, req.Period, req.Months)
	if err != nil {
		c.handleServiceError(w, req, err)
		return
	}
	if points == nil {
		points = []models.TrendPoint{}
	}
	c.writeJSON(w, http.StatusOK, points)
}
