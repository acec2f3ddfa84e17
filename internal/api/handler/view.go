package handler

import (
	"time"

	"github.com/d60-Lab/home-timeline/internal/model"
)

type postView struct {
	ID                 int64            `json:"id,string"`
	AccountID          int64            `json:"account_id,string"`
	Username           string           `json:"username,omitempty"`
	Text               string           `json:"text"`
	Visibility         model.Visibility `json:"visibility"`
	InReplyToID        *int64           `json:"in_reply_to_id,omitempty"`
	InReplyToAccountID *int64           `json:"in_reply_to_account_id,omitempty"`
	Reblog             *postView        `json:"reblog,omitempty"`
	Mentions           []int64          `json:"mentions,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

func newPostView(p *model.Post) postView {
	v := postView{
		ID:                 p.ID,
		AccountID:          p.AccountID,
		Text:               p.Text,
		Visibility:         p.Visibility,
		InReplyToID:        p.InReplyToID,
		InReplyToAccountID: p.InReplyToAccountID,
		Mentions:           p.MentionedAccountIDs(),
		CreatedAt:          p.CreatedAt,
	}
	if p.Account != nil {
		v.Username = p.Account.Username
	}
	if p.Reblog != nil {
		r := newPostView(p.Reblog)
		v.Reblog = &r
	}
	return v
}
