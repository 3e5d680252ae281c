package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fct/fct/backend/go-services/internal/apperrors"
	"github.com/fct/fct/backend/go-services/internal/house"
	"github.com/fct/fct/backend/go-services/internal/store"
	"github.com/fct/fct/backend/go-services/pkg/logger"
	"github.com/fct/fct/backend/go-services/pkg/optional"
	"github.com/gin-gonic/gin"
)

// Paging holds the list defaults and the size ceiling.
type Paging struct {
	Page    int
	Size    int
	MaxSize int
}

// DefaultPaging is used when Options leaves Paging zero.
var DefaultPaging = Paging{Page: 1, Size: 20, MaxSize: 100}

type Options struct {
	Paging Paging
	// Guard runs before every mutating route.
	Guard []gin.HandlerFunc
}

// Page is the list response envelope.
type Page struct {
	Items []house.House `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
	Pages int           `json:"pages"`
}

type attrRequest struct {
	Value json.RawMessage `json:"value"`
}

// RegisterHouseRoutes mounts the house resource under rg.
func RegisterHouseRoutes(rg *gin.RouterGroup, svc *house.Service, opts Options) {
	paging := opts.Paging
	if paging == (Paging{}) {
		paging = DefaultPaging
	}
	h := &houseHandler{svc: svc, paging: paging}

	g := rg.Group("/house")
	g.GET("/", h.list)
	g.GET("/:id", h.get)

	w := g.Group("", opts.Guard...)
	w.POST("/create", h.create)
	w.PATCH("/:id", h.patch)
	w.PUT("/:id", h.put)
	w.PATCH("/:id/attr/:attr", h.patchAttr)
	w.DELETE("/:id", h.delete)
}

type houseHandler struct {
	svc    *house.Service
	paging Paging
}

func (h *houseHandler) list(c *gin.Context) {
	page, size, err := h.pageParams(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	in, terms, err := listFilter(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	items, err := h.svc.List(c.Request.Context(), in, terms...)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(items, page, size))
}

func (h *houseHandler) get(c *gin.Context) {
	out, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *houseHandler) create(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}
	out, err := h.svc.Add(c.Request.Context(), in)
	if err != nil {
		WriteError(c, err)
		return
	}
	logger.Infof("house created id=%s name=%q", out.ID, out.Name)
	c.JSON(http.StatusOK, out)
}

func (h *houseHandler) patch(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}
	out, err := h.svc.Patch(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *houseHandler) put(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}
	out, err := h.svc.PutUpdate(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *houseHandler) patchAttr(c *gin.Context) {
	var req attrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, apperrors.Validation(err.Error()))
		return
	}
	attr := c.Param("attr")
	v, err := house.Attribute(attr, req.Value)
	if err != nil {
		WriteError(c, err)
		return
	}
	out, err := h.svc.PatchAttr(c.Request.Context(), c.Param("id"), attr, v)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *houseHandler) delete(c *gin.Context) {
	out, err := h.svc.DeleteByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	logger.Infof("house deleted id=%s", out.ID)
	c.JSON(http.StatusOK, out.Base())
}

func bindInput(c *gin.Context) (house.Input, bool) {
	var in house.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		WriteError(c, apperrors.Validation(err.Error()))
		return in, false
	}
	if err := in.Validate(); err != nil {
		WriteError(c, err)
		return in, false
	}
	return in, true
}

func (h *houseHandler) pageParams(c *gin.Context) (int, int, error) {
	page, err := intQuery(c, "page", h.paging.Page)
	if err != nil {
		return 0, 0, err
	}
	size, err := intQuery(c, "size", h.paging.Size)
	if err != nil {
		return 0, 0, err
	}
	if page < 1 {
		return 0, 0, apperrors.Validation("page must be at least 1")
	}
	if size < 1 || size > h.paging.MaxSize {
		return 0, 0, apperrors.Validationf("size must be between 1 and %d", h.paging.MaxSize)
	}
	return page, size, nil
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	s, ok := c.GetQuery(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperrors.Validationf("%s must be an integer", key)
	}
	return n, nil
}

// listFilter turns attribute query parameters into an equality schema.
func listFilter(c *gin.Context) (house.Input, []store.Term, error) {
	var in house.Input
	var terms []store.Term
	for key, values := range c.Request.URL.Query() {
		if len(values) == 0 {
			continue
		}
		v := values[len(values)-1]
		switch key {
		case "page", "size":
		case "name_contains":
			terms = append(terms, store.Contains(house.FieldName, v))
		case house.FieldName:
			in.Name = optional.Of(v)
		case house.FieldWidth, house.FieldHeight, house.FieldVolume:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return in, nil, apperrors.Validationf("%s must be a number", key)
			}
			switch key {
			case house.FieldWidth:
				in.Width = optional.Of(f)
			case house.FieldHeight:
				in.Height = optional.Of(f)
			default:
				in.Volume = optional.Of(f)
			}
		default:
			return in, nil, apperrors.Validationf("unknown filter %q", key)
		}
	}
	return in, terms, nil
}

func paginate(items []house.House, page, size int) Page {
	total := len(items)
	out := Page{Items: []house.House{}, Total: total, Page: page, Size: size, Pages: (total + size - 1) / size}
	start := (page - 1) * size
	if start < total {
		end := start + size
		if end > total {
			end = total
		}
		out.Items = items[start:end]
	}
	return out
}

// Status maps an error kind to its HTTP status.
func Status(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindResolution:
		return http.StatusUnprocessableEntity
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindDuplicated:
		return http.StatusBadRequest
	case apperrors.KindAuth:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError aborts the request with {"detail": ...}.
func WriteError(c *gin.Context, err error) {
	status := Status(err)
	detail := err.Error()
	var app *apperrors.Error
	if errors.As(err, &app) && app.Detail != "" {
		detail = app.Detail
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("house request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		detail = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
