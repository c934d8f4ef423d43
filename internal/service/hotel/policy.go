package hotel

import (
	"time"

	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
)

// RefundPolicy 取消退款规则
//   - 入住日零点前 FreeCancelDays 天及更早：全额退款
//   - 之后至入住日零点前：扣除 PenaltyRate 违约金
//   - 入住日当天及之后：不退款
//
// 截止点是具体时刻而非日期：按当前时刻与截止日零点比较，
// 截止日当天 00:00 之后取消即收违约金，不会整天都按全额退款
type RefundPolicy struct {
	FreeCancelDays int
	PenaltyRate    float64
}

// DefaultRefundPolicy 提前1天免费取消，否则收取10%违约金
var DefaultRefundPolicy = RefundPolicy{FreeCancelDays: 1, PenaltyRate: 0.10}

// Quote 计算退款金额
func (p RefundPolicy) Quote(paid float64, checkIn, now time.Time) float64 {
	if paid <= 0 {
		return 0
	}
	at := wallClock(now)
	checkInStart := utils.DateOf(checkIn)
	deadline := checkInStart.AddDate(0, 0, -p.FreeCancelDays)

	switch {
	case !at.After(deadline):
		return utils.RoundMoney(paid)
	case at.Before(checkInStart):
		return utils.MulMoney(paid, 1-p.PenaltyRate)
	default:
		return 0
	}
}

// wallClock 把本地时刻映射到与入住日期相同的 UTC 日期坐标上
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// today 本地日期
func today(now time.Time) time.Time {
	return utils.DateOf(now)
}
