package domain

import "time"

type Organization struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contactEmail"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// 拉黑方向：用人方拉黑工人，或工人屏蔽用人方
// 只要任意一个方向存在记录，双方就不再匹配
type BlockDirection string

const (
	BlockByOrganization BlockDirection = "organization_blocks_worker"
	BlockByWorker       BlockDirection = "worker_blocks_organization"
)

type OrganizationBlock struct {
	OrganizationID int64          `json:"organizationID"`
	WorkerID       int64          `json:"workerID"`
	Direction      BlockDirection `json:"direction"`
	Reason         string         `json:"reason"`
	CreatedAt      time.Time      `json:"createdAt"`
}
