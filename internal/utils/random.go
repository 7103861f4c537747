package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/mozillazg/go-pinyin"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, p := range pinyinArray {
		length := rand.Intn(len(p)) + 1
		username += p[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomPhone() string {
	phone := "1" + string(digits[rand.Intn(5)+3])
	for i := 0; i < 9; i++ {
		phone += string(digits[rand.Intn(len(digits))])
	}
	return phone
}

// 演示数据所覆盖的工种
var JobCategories = []string{"餐饮服务", "仓储分拣", "零售导购", "活动协助", "保洁服务", "搬运装卸"}

// 演示数据的投放中心点（工人坐标在其附近随机散布）
const (
	seedCenterLatitude  = 31.2304
	seedCenterLongitude = 121.4737
)

// 在中心点附近随机生成一个坐标，offsetMiles 控制散布半径
func GenerateRandomLocation(offsetMiles float64) (float64, float64) {
	// 纬度一度约 69 英里，经度按中纬度近似处理
	lat := seedCenterLatitude + (rand.Float64()*2-1)*offsetMiles/69.0
	lon := seedCenterLongitude + (rand.Float64()*2-1)*offsetMiles/55.0
	return lat, lon
}

// 用 Fisher-Yates 洗牌算法生成随机的可工作星期组合
func GenerateRandomAvailableDays() []int32 {
	days := []int32{1, 2, 3, 4, 5, 6, 7}

	for i := len(days) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		days[i], days[j] = days[j], days[i]
	}

	n := rand.Intn(4) + 3 // 每个工人至少有 3 天可工作

	return days[:n]
}

func GenerateRandomAvailabilityWindows() []domain.AvailabilityWindow {
	days := GenerateRandomAvailableDays()
	windows := make([]domain.AvailabilityWindow, 0, len(days))

	for _, day := range days {
		startHour := rand.Intn(4) + 6 // 6~9 点开始
		endHour := rand.Intn(5) + 18  // 18~22 点结束

		windows = append(windows, domain.AvailabilityWindow{
			DayOfWeek: day,
			StartTime: fmt.Sprintf("%02d:00:00", startHour),
			EndTime:   fmt.Sprintf("%02d:00:00", endHour),
		})
	}

	return windows
}

func GenerateRandomPreferredCategories() []string {
	categories := make([]string, len(JobCategories))
	copy(categories, JobCategories)

	rand.Shuffle(len(categories), func(i, j int) {
		categories[i], categories[j] = categories[j], categories[i]
	})

	n := rand.Intn(3) + 2

	return categories[:n]
}

func GenerateRandomWorker(emailDomain string) *domain.Worker {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	lat, lon := GenerateRandomLocation(20)

	worker := &domain.Worker{
		FullName:            fullName,
		Username:            username,
		Email:               username + "@" + emailDomain,
		Phone:               GenerateRandomPhone(),
		IsActive:            true,
		Onboarded:           true,
		Latitude:            &lat,
		Longitude:           &lon,
		PreferredCategories: GenerateRandomPreferredCategories(),
		AvailabilityWindows: GenerateRandomAvailabilityWindows(),
	}

	// 约一半的工人带有历史统计数据，其余模拟新工人
	if rand.Intn(2) == 0 {
		reliability := float64(rand.Intn(41) + 60)
		rating := float64(rand.Intn(21)+30) / 10
		response := float64(rand.Intn(40) + 1)

		worker.ReliabilityScore = &reliability
		worker.AverageRating = &rating
		worker.AverageResponseMinutes = &response
		worker.CompletedShiftsCount = int32(rand.Intn(30))
		worker.WorkedCategories = worker.PreferredCategories[:1]
	}

	return worker
}

func GenerateRandomShift(organizationID int64) *domain.Shift {
	category := JobCategories[rand.Intn(len(JobCategories))]
	lat, lon := GenerateRandomLocation(10)

	// 班次从明天起的随机一天开始，时长 4~8 小时
	start := time.Now().AddDate(0, 0, rand.Intn(7)+1).Truncate(time.Hour)
	start = start.Add(time.Duration(rand.Intn(4)+9) * time.Hour)
	end := start.Add(time.Duration(rand.Intn(5)+4) * time.Hour)

	return &domain.Shift{
		OrganizationID: organizationID,
		Title:          category + "临时班次",
		JobCategory:    category,
		Latitude:       lat,
		Longitude:      lon,
		StartTime:      start,
		EndTime:        end,
		PayRate:        float64(rand.Intn(16) + 20),
		SlotsTotal:     int32(rand.Intn(5) + 1),
		Status:         domain.ShiftStatusDraft,
	}
}
