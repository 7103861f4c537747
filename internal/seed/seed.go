package seed

import (
	"log/slog"
	"math/rand"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/repository"
	"github.com/linggong-dev/shift-dispatch/backend/internal/utils"
)

var demoOrganizations = []domain.Organization{
	{Name: "晨光餐饮", ContactEmail: "hr@chenguang.example.com"},
	{Name: "迅捷仓储", ContactEmail: "dispatch@xunjie.example.com"},
	{Name: "乐购零售", ContactEmail: "store@legou.example.com"},
}

// SeedDemoScenario 生成一套完整的演示数据：
// 用人方、带历史统计的工人、草稿班次，以及一条拉黑关系。
// 班次保持草稿状态，发布与开始招募通过 API 触发。
func SeedDemoScenario(repo *repository.Repository, cfg *config.Config) {
	orgs := make([]*domain.Organization, 0, len(demoOrganizations))
	for _, demo := range demoOrganizations {
		org := demo
		if err := repo.CreateOrganization(&org); err != nil {
			slog.Error("插入用人方失败", "name", org.Name, "error", err)
			continue
		}
		orgs = append(orgs, &org)
	}
	if len(orgs) == 0 {
		slog.Error("没有可用的用人方，终止演示数据生成")
		return
	}
	slog.Info("插入用人方完成", "count", len(orgs))

	workers := make([]*domain.Worker, 0, cfg.Seed.WorkerCount)
	for i := 0; i < cfg.Seed.WorkerCount; i++ {
		worker := utils.GenerateRandomWorker(cfg.Seed.EmailDomain)
		if err := repo.CreateWorker(worker); err != nil {
			slog.Error("插入工人失败", "username", worker.Username, "error", err)
			continue
		}
		workers = append(workers, worker)
	}
	slog.Info("插入工人完成", "count", len(workers))

	shiftCount := 0
	for _, org := range orgs {
		n := rand.Intn(3) + 2
		for i := 0; i < n; i++ {
			shift := utils.GenerateRandomShift(org.ID)
			if err := repo.CreateShift(shift); err != nil {
				slog.Error("插入班次失败", "title", shift.Title, "error", err)
				continue
			}
			shiftCount++
		}
	}
	slog.Info("插入班次完成", "count", shiftCount)

	// 插入一条拉黑关系，演示匹配时的排除逻辑
	if len(workers) > 0 {
		block := &domain.OrganizationBlock{
			OrganizationID: orgs[0].ID,
			WorkerID:       workers[rand.Intn(len(workers))].ID,
			Direction:      domain.BlockByOrganization,
			Reason:         "演示数据",
		}
		if err := repo.UpsertBlock(block); err != nil {
			slog.Error("插入拉黑关系失败", "error", err)
		} else {
			slog.Info("插入拉黑关系完成", "worker_id", block.WorkerID)
		}
	}

	slog.Info("演示数据生成完成")
}
