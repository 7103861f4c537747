package domain

// NotificationMessage: 发往 notification_queue 的消息
// Channel 目前只支持 email，保留字段以便将来接入短信/推送
type NotificationMessage struct {
	Type    string `json:"type"`
	To      string `json:"to"`
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// CycleMessage: 发往 shift_cycle_queue 的消息，表示需要重新评估某个班次
type CycleMessage struct {
	ShiftID int64 `json:"shiftID"`
}

// TimeoutMessage: 发往 offer_timeout_wait 的消息，经过 TTL 后
// 被死信转发到 offer_timeout_queue，表示某个邀约的响应窗口已到期
type TimeoutMessage struct {
	AssignmentID int64 `json:"assignmentID"`
}

type OfferMailData struct {
	FullName         string  `json:"fullName"`
	ShiftTitle       string  `json:"shiftTitle"`
	OrganizationName string  `json:"organizationName"`
	StartTime        string  `json:"startTime"`
	EndTime          string  `json:"endTime"`
	PayRate          float64 `json:"payRate"`
	DistanceMiles    float64 `json:"distanceMiles"`
	AcceptURL        string  `json:"acceptURL"`
	DeclineURL       string  `json:"declineURL"`
	ExpireMinutes    int     `json:"expireMinutes"`
}

type OfferAcceptedMailData struct {
	FullName   string `json:"fullName"`
	ShiftTitle string `json:"shiftTitle"`
	StartTime  string `json:"startTime"`
}

type ShiftCancelledMailData struct {
	FullName   string `json:"fullName"`
	ShiftTitle string `json:"shiftTitle"`
	StartTime  string `json:"startTime"`
}
