package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/internal/service"
	"github.com/d60-Lab/home-timeline/internal/timeline"
	"github.com/d60-Lab/home-timeline/pkg/response"
)

// Home 读取首页时间线，id 倒序
// @Summary 首页时间线
// @Tags 时间线
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Param limit query int false "条数，默认 20，最大 40"
// @Param max_id query int false "只返回 id 小于该值的帖子"
// @Param since_id query int false "只返回 id 大于该值的帖子"
// @Success 200 {object} response.Response{data=[]postView}
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/timelines/home [get]
func (h *Handler) Home(c *gin.Context) {
	id, err := accountID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	maxID, err := optionalID(c, "max_id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sinceID, err := optionalID(c, "since_id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	posts, err := h.timelineService.Home(c.Request.Context(), id, limit, maxID, sinceID)
	if err != nil {
		switch {
		case errors.Is(err, timeline.ErrRangeTooBroad):
			response.Unprocessable(c, err.Error())
			return
		case errors.Is(err, timeline.ErrInvalidMaxID):
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	if link := paginationLink(c, posts); link != "" {
		c.Header("Link", link)
	}
	views := make([]postView, len(posts))
	for i, p := range posts {
		views[i] = newPostView(p)
	}
	response.Success(c, views)
}

// paginationLink next 指向更早的一页（max_id=末条），prev 指向更新的帖子（since_id=首条）
func paginationLink(c *gin.Context, posts []*model.Post) string {
	if len(posts) == 0 {
		return ""
	}
	base := c.Request.URL.Path
	var links []string
	links = append(links, fmt.Sprintf(`<%s?max_id=%d>; rel="next"`, base, posts[len(posts)-1].ID))
	links = append(links, fmt.Sprintf(`<%s?since_id=%d>; rel="prev"`, base, posts[0].ID))
	return strings.Join(links, ", ")
}

// Touch 记录一次活跃访问
// @Summary 活跃上报
// @Tags 时间线
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/timelines/home/touch [post]
func (h *Handler) Touch(c *gin.Context) {
	id, err := accountID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	regenerating, err := h.timelineService.Touch(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, timeline.ErrUnknownUser) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"regenerating": regenerating})
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=1,max=64"`
}

// Register 创建本地账号
// @Summary 创建账号
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body registerRequest true "用户名"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Router /api/v1/accounts [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	a, err := h.timelineService.Register(c.Request.Context(), req.Username)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"id": a.ID, "username": a.Username})
}

type publishRequest struct {
	Text        string           `json:"text" binding:"max=5000"`
	Visibility  model.Visibility `json:"visibility" binding:"omitempty,oneof=public unlisted private direct"`
	InReplyToID *int64           `json:"in_reply_to_id"`
	ReblogOfID  *int64           `json:"reblog_of_id"`
	Mentions    []int64          `json:"mentions"`
}

// Publish 发帖；写入 outbox 后由后台扇出
// @Summary 发帖
// @Tags 帖子
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Param request body publishRequest true "帖子内容"
// @Success 200 {object} response.Response{data=postView}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) Publish(c *gin.Context) {
	id, err := accountID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.publisher.Publish(c.Request.Context(), service.PublishInput{
		AuthorID:    id,
		Text:        req.Text,
		Visibility:  req.Visibility,
		InReplyToID: req.InReplyToID,
		ReblogOfID:  req.ReblogOfID,
		Mentions:    req.Mentions,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParentNotFound), errors.Is(err, service.ErrOriginalNotFound), errors.Is(err, service.ErrReblogDirect),
			errors.Is(err, service.ErrReplyReblog):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Success(c, newPostView(post))
}
