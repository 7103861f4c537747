package matching

import "github.com/linggong-dev/shift-dispatch/backend/internal/domain"

/**
 * 评分算法：各分项独立计算后直接求和，不做归一化，满分 110。
 *		1. 距离（最高 30）：每 5 英里为一档递减
 *		2. 可靠度（最高 25）：reliability / 100 * 25
 *		3. 工种契合（最高 20）：既倾向又有完成记录得 20，仅倾向得 10
 *		4. 评价（最高 15）：rating / 5 * 15，新工人给中性的 10 分
 *		5. 响应速度（最高 10）：按历史平均响应时长分档
 *		6. 经验（最高 10）：每完成一单 0.5 分，封顶 10
 * 评分必须是输入快照的纯函数，同样的输入永远得到同样的结果。
 */

// Score 计算单个候选人对某个班次的综合评分及其分项
func Score(worker *domain.Worker, shift *domain.Shift, distanceMiles float64) (float64, domain.ScoreBreakdown) {
	breakdown := domain.ScoreBreakdown{
		Distance:     distanceScore(distanceMiles),
		Reliability:  reliabilityScore(worker.ReliabilityScore),
		Affinity:     affinityScore(worker, shift.JobCategory),
		Rating:       ratingScore(worker.AverageRating),
		ResponseTime: responseTimeScore(worker.AverageResponseMinutes),
		Experience:   experienceScore(worker.CompletedShiftsCount),
	}

	return breakdown.Total(), breakdown
}

// 距离档位以 5 英里为一档递减，25 英里以外的工人在过滤阶段就已被排除
func distanceScore(miles float64) float64 {
	switch {
	case miles <= 5:
		return 30
	case miles <= 10:
		return 25
	case miles <= 15:
		return 20
	case miles <= 20:
		return 15
	default:
		return 10
	}
}

// 没有可靠度数据的新工人不得分
func reliabilityScore(reliability *float64) float64 {
	if reliability == nil {
		return 0
	}
	return *reliability / 100 * 25
}

// 过滤阶段已经保证了工种倾向，所以这一项只会是 10 或 20
func affinityScore(worker *domain.Worker, category string) float64 {
	if worker.PrefersCategory(category) && worker.HasWorkedCategory(category) {
		return 20
	}
	return 10
}

// 没有评价的新工人给中性的 10 分而不是 0 分，避免惩罚第一次接单的工人
func ratingScore(rating *float64) float64 {
	if rating == nil {
		return 10
	}
	return *rating / 5 * 15
}

// 没有响应数据的工人不拿这一项的加分
func responseTimeScore(minutes *float64) float64 {
	if minutes == nil {
		return 0
	}

	switch {
	case *minutes < 5:
		return 10
	case *minutes <= 15:
		return 8
	case *minutes <= 30:
		return 5
	default:
		return 2
	}
}

func experienceScore(completedCount int32) float64 {
	score := 0.5 * float64(completedCount)
	if score > 10 {
		return 10
	}
	return score
}
