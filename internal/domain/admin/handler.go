package admin

import (
	"net/http"
	"net/url"
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
	g.GET("/doctors", h.ListDoctors)
	g.GET("/doctors/:id", h.GetDoctor)
	g.POST("/doctors", h.CreateDoctor)
	g.PUT("/doctors/:id", h.UpdateDoctor)
	g.DELETE("/doctors/:id", h.DeleteDoctor)

	g.GET("/specialties", h.ListSpecialties)
	g.GET("/specialties/:id", h.GetSpecialty)
	g.POST("/specialties", h.CreateSpecialty)
	g.PUT("/specialties/:id", h.UpdateSpecialty)
	g.DELETE("/specialties/:id", h.DeleteSpecialty)

	g.GET("/users", h.ListUsers)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/by-username/:username", h.GetUserByUsername)
	g.POST("/users", h.CreateUser)
	g.PUT("/users/:id", h.UpdateUser)
	g.DELETE("/users/:id", h.DeleteUser)
}

// -- Doctor Handlers --

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), reqctx.FromEcho(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.svc.ListDoctors(c.Request().Context(), reqctx.FromEcho(c))
	if err != nil {
		return err
	}
	if doctors == nil {
		doctors = []*Doctor{}
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	d.ID = 0
	if err := h.svc.CreateDoctor(c.Request().Context(), reqctx.FromEcho(c), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	d.ID = id
	if err := h.svc.UpdateDoctor(c.Request().Context(), reqctx.FromEcho(c), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), reqctx.FromEcho(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DeleteResponse{Exito: true})
}

// -- Specialty Handlers --

func (h *Handler) GetSpecialty(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sp, err := h.svc.GetSpecialty(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) ListSpecialties(c echo.Context) error {
	list, err := h.svc.ListSpecialties(c.Request().Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []*Specialty{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateSpecialty(c echo.Context) error {
	var sp Specialty
	if err := c.Bind(&sp); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	sp.ID = 0
	if err := h.svc.CreateSpecialty(c.Request().Context(), &sp); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *Handler) UpdateSpecialty(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var sp Specialty
	if err := c.Bind(&sp); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	sp.ID = id
	if err := h.svc.UpdateSpecialty(c.Request().Context(), &sp); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) DeleteSpecialty(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSpecialty(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DeleteResponse{Exito: true})
}

// -- User Handlers --

func (h *Handler) GetUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) GetUserByUsername(c echo.Context) error {
	username := c.Param("username")
	if unescaped, err := url.PathUnescape(username); err == nil {
		username = unescaped
	}
	u, err := h.svc.GetUserByUsername(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*User{}
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var u User
	if err := c.Bind(&u); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	u.ID = 0
	if err := h.svc.CreateUser(c.Request().Context(), reqctx.FromEcho(c), &u); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var u User
	if err := c.Bind(&u); err != nil {
		return rpc.InvalidArgument("invalid request body")
	}
	u.ID = id
	if err := h.svc.UpdateUser(c.Request().Context(), reqctx.FromEcho(c), &u); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), reqctx.FromEcho(c), id); err != nil {
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
