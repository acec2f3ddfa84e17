package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/internal/service"
)

// AccountHeader 调用方账号；鉴权由上游网关完成
const AccountHeader = "X-Account-ID"

var errNoAccount = errors.New("missing or invalid " + AccountHeader)

// TimelineService 首页时间线与账号生命周期
type TimelineService interface {
	Home(ctx context.Context, accountID int64, limit int, maxID, sinceID *int64) ([]*model.Post, error)
	Touch(ctx context.Context, accountID int64) (bool, error)
	Register(ctx context.Context, username string) (*model.Account, error)
}

// PostPublisher 发帖
type PostPublisher interface {
	Publish(ctx context.Context, in service.PublishInput) (*model.Post, error)
}

type Handler struct {
	relService      service.RelationshipService
	timelineService TimelineService
	publisher       PostPublisher
}

func New(rel service.RelationshipService, tl TimelineService, pub PostPublisher) *Handler {
	return &Handler{relService: rel, timelineService: tl, publisher: pub}
}

// accountID 读取调用方账号，header 优先，其次 query account_id
func accountID(c *gin.Context) (int64, error) {
	raw := c.GetHeader(AccountHeader)
	if raw == "" {
		raw = c.Query("account_id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errNoAccount
	}
	return id, nil
}

// optionalID 解析可选的 ID 查询参数
func optionalID(c *gin.Context, key string) (*int64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return nil, errors.New("invalid " + key)
	}
	return &id, nil
}

func pathID(c *gin.Context, key string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return id, nil
}
