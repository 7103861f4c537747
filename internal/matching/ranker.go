package matching

import "sort"

// Ranker: 对候选人按评分排序并提供"下一个未被邀约的最佳人选"。
// 评分相同时按工人 ID 升序打破平局，保证排序结果确定。
type Ranker struct {
	candidates []*Candidate
}

// NewRanker 对所有候选人评分并排序
func NewRanker(sc *ShiftContext, candidates []*Candidate) *Ranker {
	for _, candidate := range candidates {
		candidate.Score, candidate.Breakdown = Score(candidate.Worker, sc.Shift, candidate.DistanceMiles)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Worker.ID < candidates[j].Worker.ID
	})

	return &Ranker{candidates: candidates}
}

// Ranked 返回排序后的完整候选人列表（名次即下标 + 1）
func (r *Ranker) Ranked() []*Candidate {
	return r.candidates
}

// NextBest 返回排除指定工人后的最佳候选人及其名次（从 1 开始）。
// 没有剩余候选人时返回 nil，这是正常的"招募暂停"条件而不是错误。
func (r *Ranker) NextBest(excluding map[int64]bool) (*Candidate, int32) {
	for i, candidate := range r.candidates {
		if excluding[candidate.Worker.ID] {
			continue
		}
		return candidate, int32(i + 1)
	}
	return nil, 0
}
