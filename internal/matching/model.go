package matching

import "github.com/linggong-dev/shift-dispatch/backend/internal/domain"

// Candidate: 通过硬性过滤的工人及其评分快照
type Candidate struct {
	Worker        *domain.Worker
	DistanceMiles float64
	Score         float64
	Breakdown     domain.ScoreBreakdown
}

// ShiftContext: 一次匹配所需的全部输入
// 注意这里的 workers 应该是所有在职工人，排除逻辑全部由 Filter 负责
type ShiftContext struct {
	Shift             *domain.Shift
	Workers           []*domain.Worker
	BlockedWorkerIDs  map[int64]bool // 与用人方存在任意方向拉黑关系的工人
	AssignedWorkerIDs map[int64]bool // 已经在该班次拥有 Assignment 记录的工人（无论状态）
}
