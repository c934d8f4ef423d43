package utils

import "time"

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// DateOf 取日历日期，统一落在 UTC 零点
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 yyyy-MM-dd
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// FormatDate 格式化为 yyyy-MM-dd
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NightsBetween 计算两个日期之间的整晚数
func NightsBetween(checkIn, checkOut time.Time) int {
	return int(DateOf(checkOut).Sub(DateOf(checkIn)).Hours() / 24)
}
