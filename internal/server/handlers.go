package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/controller"
	"github.com/shashiranjanraj/platter/internal/earnings"
	"github.com/shashiranjanraj/platter/internal/export"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/internal/view"
	"github.com/shashiranjanraj/platter/pkg/ctx"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/rbac"
	"github.com/shashiranjanraj/platter/pkg/session"
	"github.com/shashiranjanraj/platter/pkg/sse"
	"github.com/shashiranjanraj/platter/pkg/validate"
	"github.com/shashiranjanraj/platter/pkg/workerpool"
	"github.com/shashiranjanraj/platter/pkg/ws"
)

const streamKeepalive = 15 * time.Second

// orderView is an order as the shell renders it.
type orderView struct {
	order.Order
	StatusLabel string        `json:"statusLabel"`
	StatusColor string        `json:"statusColor"`
	Progress    int           `json:"progress"`
	Actions     []rbac.Action `json:"actions"`
}

type ordersModel struct {
	Role      role.Role         `json:"role"`
	Seq       uint64            `json:"seq"`
	Orders    []orderView       `json:"orders"`
	Accepted  []orderView       `json:"accepted,omitempty"`
	History   []orderView       `json:"history,omitempty"`
	Earnings  *earnings.Summary `json:"earnings,omitempty"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

func views(r role.Role, orders []order.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		actions := view.Actions(r, o)
		if actions == nil {
			actions = []rbac.Action{}
		}
		out = append(out, orderView{
			Order:       o,
			StatusLabel: o.Status.Label(),
			StatusColor: o.Status.Color(),
			Progress:    order.StatusProgress(o.Status),
			Actions:     actions,
		})
	}
	return out
}

func (s *Server) ordersModel(snap controller.Snapshot) ordersModel {
	m := ordersModel{
		Role:      snap.Role,
		Seq:       snap.Seq,
		Orders:    views(snap.Role, snap.Orders),
		Accepted:  views(snap.Role, snap.Accepted),
		History:   views(snap.Role, snap.History),
		FetchedAt: snap.FetchedAt,
	}
	if snap.Role == role.Delivery {
		sum := earnings.Compute(snap.Accepted, s.now())
		m.Earnings = &sum
	}
	return m
}

type pageModel struct {
	Page       view.Page    `json:"page"`
	Role       role.Role    `json:"role,omitempty"`
	ThemeMode  string       `json:"themeMode"`
	Navigation []view.Nav   `json:"navigation,omitempty"`
	Lists      *ordersModel `json:"lists,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// listed pages carry the order lists.
var listed = map[view.Kind]bool{
	view.Orders:           true,
	view.OrderHistory:     true,
	view.OrderInformation: true,
	view.DeliveryStatus:   true,
}

func (s *Server) page(c *ctx.Context) {
	r := role.Parse(c.Role())
	p := view.Compose(c.Path(), r)
	if p.Redirect != "" {
		c.Redirect(http.StatusFound, p.Redirect)
		return
	}

	m := pageModel{Page: p, Role: r, ThemeMode: s.sess.ThemeMode()}
	if p.Authenticated {
		m.Navigation = view.Navigation(r)
	}
	if p.Authenticated && listed[p.Kind] {
		ctrl, err := s.controller()
		if err != nil {
			m.Error = err.Error()
		} else {
			snap, err := s.snapshot(c.Context(), ctrl)
			lists := s.ordersModel(snap)
			m.Lists = &lists
			if err != nil {
				m.Error = err.Error()
			}
		}
	}
	c.Success(m)
}

func (s *Server) health(c *ctx.Context) {
	up := s.client.Reachable(c.Context())
	code := http.StatusOK
	if !up {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, map[string]interface{}{"backend": s.client.BaseURL(), "reachable": up})
}

func (s *Server) login(c *ctx.Context) {
	var req api.LoginRequest
	if !c.BindJSON(&req) {
		return
	}
	if _, err := s.client.Login(c.Context(), req); err != nil {
		s.fail(c, err)
		return
	}
	r := role.Resolve(s.sess)
	c.Success(map[string]interface{}{"role": r, "redirect": view.Root})
}

func (s *Server) logout(c *ctx.Context) {
	if err := s.sess.Clear(c.Context(), session.ReasonLogout); err != nil {
		s.fail(c, err)
		return
	}
	c.Success(map[string]string{"redirect": view.LoginPath})
}

func (s *Server) orders(c *ctx.Context) {
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return
	}
	snap, err := s.snapshot(c.Context(), ctrl)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Success(s.ordersModel(snap))
}

func (s *Server) refresh(c *ctx.Context) {
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return
	}
	snap, err := ctrl.Refresh(c.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Success(s.ordersModel(snap))
}

// lookup finds the {id} order in the current list. On failure it has
// already answered.
func (s *Server) lookup(c *ctx.Context) (*controller.Controller, order.Order, bool) {
	id, ok := c.ParamInt("id")
	if !ok {
		c.Error(http.StatusBadRequest, controller.ErrInvalidOrder.Error())
		return nil, order.Order{}, false
	}
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return nil, order.Order{}, false
	}
	snap, err := s.snapshot(c.Context(), ctrl)
	if err != nil {
		s.fail(c, err)
		return nil, order.Order{}, false
	}
	o, found := snap.Find(id)
	if !found {
		c.NotFound("Order not found")
		return nil, order.Order{}, false
	}
	return ctrl, o, true
}

func (s *Server) act(action rbac.Action) ctx.HandlerFunc {
	return func(c *ctx.Context) {
		ctrl, o, ok := s.lookup(c)
		if !ok {
			return
		}
		var err error
		switch action {
		case rbac.Confirm:
			err = ctrl.Confirm(c.Context(), o)
		case rbac.Cancel:
			err = ctrl.Cancel(c.Context(), o)
		case rbac.Accept:
			err = ctrl.Accept(c.Context(), o)
		case rbac.Deliver:
			err = ctrl.MarkDelivered(c.Context(), o)
		case rbac.Release:
			err = ctrl.Release(c.Context(), o)
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Success(s.ordersModel(ctrl.Snapshot()))
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) updateStatus(c *ctx.Context) {
	var req statusRequest
	if !c.BindJSON(&req) {
		return
	}
	ctrl, o, ok := s.lookup(c)
	if !ok {
		return
	}
	if err := ctrl.UpdateStatus(c.Context(), o, order.Status(req.Status)); err != nil {
		s.fail(c, err)
		return
	}
	c.Success(s.ordersModel(ctrl.Snapshot()))
}

func (s *Server) earnings(c *ctx.Context) {
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.snapshot(c.Context(), ctrl); err != nil {
		s.fail(c, err)
		return
	}
	c.Success(ctrl.Earnings())
}

func (s *Server) deliveryProfile(c *ctx.Context) {
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return
	}
	staff := ctrl.Staff()
	if staff == nil {
		if staff, err = ctrl.LoadProfile(c.Context()); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.Success(staff)
}

func (s *Server) review(c *ctx.Context) {
	id, ok := c.ParamInt("id")
	if !ok {
		c.Error(http.StatusBadRequest, controller.ErrInvalidOrder.Error())
		return
	}
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return
	}
	rev, err := ctrl.Review(c.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Success(map[string]interface{}{"review": rev})
}

func (s *Server) submitReview(c *ctx.Context) {
	id, ok := c.ParamInt("id")
	if !ok {
		c.Error(http.StatusBadRequest, controller.ErrInvalidOrder.Error())
		return
	}
	var req api.ReviewRequest
	if !c.BindJSON(&req) {
		return
	}
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return
	}
	rev, err := ctrl.SubmitReview(c.Context(), id, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Success(map[string]interface{}{"review": rev})
}

func (s *Server) createExport(c *ctx.Context) {
	if s.disk == nil {
		c.Error(http.StatusServiceUnavailable, "No export disk is configured")
		return
	}
	f, err := export.ParseFormat(c.DefaultQuery("format", string(export.JSON)))
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return
	}
	snap, err := s.snapshot(c.Context(), ctrl)
	if err != nil {
		s.fail(c, err)
		return
	}

	now := s.now()
	path := export.Path(snap.Role, f, now)
	err = s.exports.Submit(func(ctx context.Context) {
		if _, err := export.Write(ctx, s.disk, snap, f, now); err != nil {
			logger.Error("server: export failed", "path", path, "error", err)
		}
	})
	switch {
	case errors.Is(err, workerpool.ErrPoolFull):
		c.Error(http.StatusTooManyRequests, "Too many exports in progress, try again shortly")
		return
	case err != nil:
		c.Error(http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	c.Accepted(map[string]string{"path": path, "url": s.disk.URL(path)})
}

func (s *Server) listExports(c *ctx.Context) {
	if s.disk == nil {
		c.Error(http.StatusServiceUnavailable, "No export disk is configured")
		return
	}
	files, err := s.disk.Files(c.Context(), "exports/"+c.Role())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]map[string]string, 0, len(files))
	for _, f := range files {
		out = append(out, map[string]string{"path": f, "url": s.disk.URL(f)})
	}
	c.Success(out)
}

// events streams snapshots and logouts as Server-Sent Events.
func (s *Server) events(c *ctx.Context) {
	ctrl, err := s.controller()
	if err != nil {
		s.fail(c, err)
		return
	}
	events, off := s.subscribeStream()
	defer off()

	stream, err := sse.New(c.W)
	if err != nil {
		c.Error(http.StatusInternalServerError, err.Error())
		return
	}
	if snap := ctrl.Snapshot(); snap.Seq > 0 {
		_ = stream.Send(sse.Event{Name: controller.EventName(snap.Role), Data: s.ordersModel(snap)})
	}
	if err := stream.Pump(c.Context(), events, streamKeepalive); err != nil {
		logger.WithCtx(c.Context()).Debug("server: event stream closed", "error", err)
	}
}

// greet sends a new websocket client the current list.
func (s *Server) greet(client *ws.Client) {
	ctrl, err := s.controller()
	if err != nil {
		return
	}
	if snap := ctrl.Snapshot(); snap.Seq > 0 {
		_ = client.SendJSON(map[string]interface{}{"type": controller.EventName(snap.Role), "data": s.ordersModel(snap)})
	}
}

// fail maps an error onto a status. Messages reach the user verbatim, so
// backend text is passed through unchanged.
func (s *Server) fail(c *ctx.Context, err error) {
	var (
		verrs  validate.Errors
		netErr *api.NetworkError
		apiErr *api.APIError
	)
	switch {
	case errors.As(err, &verrs):
		c.ValidationError(verrs)
	case errors.Is(err, controller.ErrAlreadyReviewed), errors.Is(err, controller.ErrTransitionNotAllowed):
		c.Error(http.StatusConflict, err.Error())
	case errors.Is(err, controller.ErrUnknownRole), errors.Is(err, controller.ErrWrongRole):
		c.Forbidden(err.Error())
	case errors.Is(err, controller.ErrInvalidOrder):
		c.Error(http.StatusBadRequest, err.Error())
	case errors.Is(err, controller.ErrProfileNotLoaded):
		c.Error(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, api.ErrUnauthorized):
		c.Error(http.StatusUnauthorized, err.Error())
	case errors.Is(err, api.ErrNotFound):
		c.NotFound(err.Error())
	case errors.As(err, &netErr), errors.As(err, &apiErr):
		c.Error(http.StatusBadGateway, err.Error())
	default:
		logger.WithCtx(c.Context()).Error("server: request failed", "path", c.Path(), "error", err)
		c.Error(http.StatusInternalServerError, "Internal Server Error")
	}
}
