package item

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/itemscope/xerrors"
)

const (
	defaultLimit = 100
	// MaxItemsPerPage 单次列表请求允许的最大条目数
	MaxItemsPerPage = 1000
)

// Handler 条目的 HTTP 处理器
type Handler struct {
	svc *Service
}

// NewHandler 创建处理器
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register 在 r 上挂载 /items 路由
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/items")
	g.GET("/", h.list)
	g.POST("/", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil || skip < 0 {
		unprocessable(c, "skip must be a non-negative integer")
		return
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > MaxItemsPerPage {
		unprocessable(c, fmt.Sprintf("limit must be an integer between 1 and %d", MaxItemsPerPage))
		return
	}

	items, err := h.svc.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.fail(c, 0, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		unprocessable(c, err.Error())
		return
	}

	it, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, 0, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	it, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		unprocessable(c, err.Error())
		return
	}

	it, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail 将服务错误映射为响应
// 非业务错误挂到 c.Errors 上，请求指标据此区分处理器失败
func (h *Handler) fail(c *gin.Context, id uint, err error) {
	if xerrors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Item with id %d not found", id)})
		return
	}
	_ = c.Error(xerrors.WithCode(err, CodeStorage))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal Server Error"})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			// 超出范围的 ID 不可能存在
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Item with id %s not found", c.Param("id"))})
			return 0, false
		}
		unprocessable(c, "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func unprocessable(c *gin.Context, detail string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": detail})
}
