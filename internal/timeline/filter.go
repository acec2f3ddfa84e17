package timeline

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/d60-Lab/home-timeline/internal/model"
)

// Relations 关系查询，均以观众列表为单位批量执行
type Relations interface {
	BlockingAny(ctx context.Context, viewers, targets []int64) ([]int64, error)
	MutingAny(ctx context.Context, viewers, targets []int64) ([]int64, error)
	BlockedBy(ctx context.Context, accountID int64, viewers []int64) ([]int64, error)
	DomainBlocking(ctx context.Context, viewers []int64, domain string) ([]int64, error)
	OnBlockedDomains(ctx context.Context, accountID int64, viewers []int64) ([]int64, error)
	FollowersAmong(ctx context.Context, targetID int64, viewers []int64) ([]int64, error)
}

// stage 过滤管道中的一步：输入候选观众，返回保留的观众
type stage struct {
	name string
	run  func(ctx context.Context, viewers []int64) ([]int64, error)
}

// Filter 帖子可见性判定。帖子需预加载 Account、Reblog.Account、Mentions
type Filter struct {
	rel Relations
}

func NewFilter(rel Relations) *Filter { return &Filter{rel: rel} }

// Subscribers 返回 candidates 中可以在时间线里看到 p 的账号，保持输入顺序并去重
func (f *Filter) Subscribers(ctx context.Context, p *model.Post, candidates []int64) ([]int64, error) {
	viewers := lo.Uniq(candidates)
	if len(viewers) == 0 {
		return nil, nil
	}
	if orphaned(p) {
		filteredTotal.WithLabelValues("orphan").Add(float64(len(viewers)))
		return nil, nil
	}
	for _, s := range f.stages(p) {
		kept, err := s.run(ctx, viewers)
		if err != nil {
			return nil, fmt.Errorf("filter stage %s: %w", s.name, err)
		}
		if dropped := len(viewers) - len(kept); dropped > 0 {
			filteredTotal.WithLabelValues(s.name).Add(float64(dropped))
		}
		viewers = kept
		if len(viewers) == 0 {
			return nil, nil
		}
	}
	return viewers, nil
}

// Filtered 帖子是否应从 viewer 的时间线中过滤掉
func (f *Filter) Filtered(ctx context.Context, p *model.Post, viewer int64) (bool, error) {
	kept, err := f.Subscribers(ctx, p, []int64{viewer})
	if err != nil {
		return false, err
	}
	return len(kept) == 0, nil
}

// Mentions 返回应收到提及通知的账号
func (f *Filter) Mentions(ctx context.Context, p *model.Post) ([]int64, error) {
	recipients := lo.Without(lo.Uniq(p.MentionedAccountIDs()), p.AccountID)
	if len(recipients) == 0 {
		return nil, nil
	}

	checks := append([]int64{p.AccountID}, p.MentionedAccountIDs()...)
	if p.Reply && p.InReplyToAccountID != nil {
		checks = append(checks, *p.InReplyToAccountID)
	}
	blocking, err := f.rel.BlockingAny(ctx, recipients, lo.Uniq(checks))
	if err != nil {
		return nil, fmt.Errorf("mention blocks: %w", err)
	}
	recipients = lo.Without(recipients, blocking...)

	if len(recipients) > 0 && p.Account != nil && p.Account.Silenced {
		followers, err := f.rel.FollowersAmong(ctx, p.AccountID, recipients)
		if err != nil {
			return nil, fmt.Errorf("mention followers: %w", err)
		}
		recipients = lo.Intersect(recipients, followers)
	}
	return recipients, nil
}

// orphaned 父帖不可解析的回复，或原帖不可解析的转发
func orphaned(p *model.Post) bool {
	if p.Reply && p.InReplyToID == nil {
		return true
	}
	return p.IsReblog() && (p.Reblog == nil || p.Reblog.Account == nil)
}

func (f *Filter) stages(p *model.Post) []stage {
	stages := []stage{f.blocksAndMutes(p)}
	if p.Reply && p.InReplyToAccountID != nil && *p.InReplyToAccountID != p.AccountID {
		stages = append(stages, f.replyAudience(p.AccountID, *p.InReplyToAccountID))
	}
	if p.IsReblog() {
		stages = append(stages, f.reblogAuthorBlocks(p.Reblog.Account))
	}
	return stages
}

func (f *Filter) blocksAndMutes(p *model.Post) stage {
	muteTargets := []int64{p.AccountID}
	blockTargets := append([]int64{p.AccountID}, p.MentionedAccountIDs()...)
	if p.IsReblog() {
		muteTargets = append(muteTargets, p.Reblog.AccountID)
		blockTargets = append(blockTargets, p.Reblog.AccountID)
	}
	return stage{name: "block_mute", run: func(ctx context.Context, viewers []int64) ([]int64, error) {
		blocking, err := f.rel.BlockingAny(ctx, viewers, lo.Uniq(blockTargets))
		if err != nil {
			return nil, err
		}
		muting, err := f.rel.MutingAny(ctx, viewers, lo.Uniq(muteTargets))
		if err != nil {
			return nil, err
		}
		return lo.Without(viewers, append(blocking, muting...)...), nil
	}}
}

// replyAudience 回复他人：只保留作者、被回复者本人及被回复者的关注者
func (f *Filter) replyAudience(author, inReplyTo int64) stage {
	return stage{name: "reply", run: func(ctx context.Context, viewers []int64) ([]int64, error) {
		followers, err := f.rel.FollowersAmong(ctx, inReplyTo, viewers)
		if err != nil {
			return nil, err
		}
		keep := lo.SliceToMap(append(followers, author, inReplyTo), func(id int64) (int64, struct{}) { return id, struct{}{} })
		return lo.Filter(viewers, func(id int64, _ int) bool {
			_, ok := keep[id]
			return ok
		}), nil
	}}
}

// reblogAuthorBlocks 转发：排除被原作者屏蔽（含域名）以及屏蔽原作者域名的观众
func (f *Filter) reblogAuthorBlocks(author *model.Account) stage {
	return stage{name: "reblog", run: func(ctx context.Context, viewers []int64) ([]int64, error) {
		blocked, err := f.rel.BlockedBy(ctx, author.ID, viewers)
		if err != nil {
			return nil, err
		}
		onDomains, err := f.rel.OnBlockedDomains(ctx, author.ID, viewers)
		if err != nil {
			return nil, err
		}
		excluded := append(blocked, onDomains...)
		if !author.Local() {
			blocking, err := f.rel.DomainBlocking(ctx, viewers, author.Domain)
			if err != nil {
				return nil, err
			}
			excluded = append(excluded, blocking...)
		}
		return lo.Without(viewers, excluded...), nil
	}}
}
