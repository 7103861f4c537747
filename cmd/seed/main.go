package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
	"github.com/linggong-dev/shift-dispatch/backend/internal/repository"
	"github.com/linggong-dev/shift-dispatch/backend/internal/seed"
	"github.com/linggong-dev/shift-dispatch/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var organizationID int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机工人, 2: 插入随机班次, 3: 生成完整演示数据)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.Int64Var(&organizationID, "organization-id", 0, "随机班次所属的用人方 ID")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的工人数量")
			return
		}

		cnt := n
		for i := 0; i < n; i++ {
			worker := utils.GenerateRandomWorker(cfg.Seed.EmailDomain)
			if err := repo.CreateWorker(worker); err != nil {
				slog.Error("无法插入工人", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入工人成功", slog.Int("count", n-cnt))
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的班次数量")
			return
		}

		// 未指定用人方时随机挑选一个已有的用人方
		if organizationID <= 0 {
			orgs, err := repo.GetAllOrganizations()
			if err != nil {
				slog.Error("无法获取用人方列表", slog.String("error", err.Error()))
				return
			}
			if len(orgs) == 0 {
				slog.Error("数据库中没有用人方，请先生成演示数据")
				return
			}
			organizationID = orgs[rand.Intn(len(orgs))].ID
		}

		cnt := n
		for i := 0; i < n; i++ {
			shift := utils.GenerateRandomShift(organizationID)
			if err := repo.CreateShift(shift); err != nil {
				slog.Error("无法插入班次", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入班次成功", slog.Int("count", n-cnt))
	case 3:
		seed.SeedDemoScenario(repo, cfg)
	default:
		slog.Error("指定的操作非法")
	}
}
