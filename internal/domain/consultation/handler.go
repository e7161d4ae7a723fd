package consultation

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the consultation RPC surface. Callers are the
// gateway and sibling services, which forward the propagation headers.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/consultations", h.List)
	g.GET("/consultations/:id", h.Get)
	g.POST("/consultations", h.Create)
	g.PUT("/consultations/:id", h.Update)
	g.DELETE("/consultations/:id", h.Delete)
	g.POST("/reports/consultations-by-doctor", h.ReportByDoctor)
	g.POST("/reports/consultation-statistics", h.Statistics)
}

// DeleteResponse mirrors the acknowledgement returned by Delete.
type DeleteResponse struct {
	Exito bool `json:"exito"`
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	tc, err := h.svc.GetByID(c.Request().Context(), reqctx.FromEcho(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tc.ToResponse())
}

func (h *Handler) List(c echo.Context) error {
	rows, err := h.svc.List(c.Request().Context(), reqctx.FromEcho(c))
	if err != nil {
		return err
	}
	out := make([]Response, 0, len(rows))
	for _, tc := range rows {
		out = append(out, tc.ToResponse())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	tc, err := h.svc.Create(c.Request().Context(), reqctx.FromEcho(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tc.ToResponse())
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	tc, err := h.svc.Update(c.Request().Context(), reqctx.FromEcho(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tc.ToResponse())
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), reqctx.FromEcho(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DeleteResponse{Exito: true})
}

func (h *Handler) ReportByDoctor(c echo.Context) error {
	report, err := h.report(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Statistics(c echo.Context) error {
	report, err := h.report(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ComputeStatistics(report))
}

func (h *Handler) report(c echo.Context) (*Report, error) {
	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return nil, rpc.InvalidArgument("invalid request body")
	}
	f, err := req.Filter()
	if err != nil {
		return nil, err
	}
	return h.svc.ReportByDoctor(c.Request().Context(), reqctx.FromEcho(c), f)
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, rpc.InvalidArgument("invalid id")
	}
	return id, nil
}
