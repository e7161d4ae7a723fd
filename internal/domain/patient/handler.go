package patient

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

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients", h.List)
	g.GET("/patients/:id", h.Get)
	g.POST("/patients", h.Create)
	g.PUT("/patients/:id", h.Update)
	g.DELETE("/patients/:id", h.Delete)
}

type DeleteResponse struct {
	Exito bool `json:"exito"`
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), reqctx.FromEcho(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.ToResponse())
}

func (h *Handler) List(c echo.Context) error {
	rows, err := h.svc.List(c.Request().Context(), reqctx.FromEcho(c))
	if err != nil {
		return err
	}
	out := make([]Response, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.ToResponse())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	p, err := h.svc.Create(c.Request().Context(), reqctx.FromEcho(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p.ToResponse())
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
	p, err := h.svc.Update(c.Request().Context(), reqctx.FromEcho(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.ToResponse())
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

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, rpc.InvalidArgument("invalid id")
	}
	return id, nil
}
