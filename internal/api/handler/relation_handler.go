package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/home-timeline/internal/service"
	"github.com/d60-Lab/home-timeline/pkg/response"
)

type relationRequest struct {
	TargetID int64 `json:"target_id" binding:"required,gt=0"`
}

// Follow 建立关注，并异步把对方近期帖子合并进自己的时间线
// @Summary 关注账号
// @Tags 关系链
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Param request body relationRequest true "目标账号"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	h.relation(c, h.relService.Follow)
}

// Unfollow 取消关注，并异步从时间线移除对方帖子
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Param request body relationRequest true "目标账号"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	h.relation(c, h.relService.Unfollow)
}

// Block 屏蔽账号：双向解除关注并清理双方时间线
// @Summary 屏蔽账号
// @Tags 关系链
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Param request body relationRequest true "目标账号"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/block [post]
func (h *Handler) Block(c *gin.Context) {
	h.relation(c, h.relService.Block)
}

// Unblock 取消屏蔽
// @Summary 取消屏蔽
// @Tags 关系链
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Param request body relationRequest true "目标账号"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/unblock [post]
func (h *Handler) Unblock(c *gin.Context) {
	h.relation(c, h.relService.Unblock)
}

// Mute 静音账号
// @Summary 静音账号
// @Tags 关系链
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Param request body relationRequest true "目标账号"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/mute [post]
func (h *Handler) Mute(c *gin.Context) {
	h.relation(c, h.relService.Mute)
}

// Unmute 取消静音
// @Summary 取消静音
// @Tags 关系链
// @Accept json
// @Produce json
// @Param X-Account-ID header int true "当前账号ID"
// @Param request body relationRequest true "目标账号"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/unmute [post]
func (h *Handler) Unmute(c *gin.Context) {
	h.relation(c, h.relService.Unmute)
}

func (h *Handler) relation(c *gin.Context, op func(ctx context.Context, fromID, toID int64) error) {
	from, err := accountID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := op(c.Request.Context(), from, req.TargetID); err != nil {
		switch {
		case errors.Is(err, service.ErrFollowSelf), errors.Is(err, service.ErrBlockSelf), errors.Is(err, service.ErrBlocked):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Success(c, nil)
}

// ListFollowing 查询某账号关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param account_id path int true "账号ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{account_id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	h.list(c, h.relService.ListFollowing)
}

// ListFans 查询某账号的粉丝
// @Summary 查询粉丝列表（来自冗余表）
// @Tags 关系链
// @Param account_id path int true "账号ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{account_id}/fans [get]
func (h *Handler) ListFans(c *gin.Context) {
	h.list(c, h.relService.ListFans)
}

func (h *Handler) list(c *gin.Context, op func(ctx context.Context, accountID int64, page, pageSize int) ([]int64, error)) {
	id, err := pathID(c, "account_id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	list, err := op(c.Request.Context(), id, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
