package numeral

import (
	"fmt"
	"time"
)

var thaiMonthsFull = [13]string{"",
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

var thaiMonthsShort = [13]string{"",
	"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.",
	"ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค.",
}

// ThaiMonthName returns the Thai name for a month number (1-12),
// abbreviated when short is true. Out-of-range months yield "".
func ThaiMonthName(month int, short bool) string {
	if month < 1 || month > 12 {
		return ""
	}
	if short {
		return thaiMonthsShort[month]
	}
	return thaiMonthsFull[month]
}

// FormatThaiDate renders a date in Thai convention: day, Thai month
// name, Buddhist-era year (+543). Thai digits are used for day and
// year when thaiNumerals is set, e.g. "๒๔ ธ.ค. ๒๕๖๘".
func FormatThaiDate(t time.Time, short, thaiNumerals bool) string {
	day := fmt.Sprintf("%d", t.Day())
	year := fmt.Sprintf("%d", t.Year()+543)
	if thaiNumerals {
		day = Encode(t.Day())
		year = Encode(t.Year() + 543)
	}
	return fmt.Sprintf("%s %s %s", day, ThaiMonthName(int(t.Month()), short), year)
}

// ParseThaiDate parses a "YYYY-MM-DD" setting value and renders it via
// FormatThaiDate. Empty or malformed values yield "".
func ParseThaiDate(value string, short, thaiNumerals bool) string {
	if value == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return ""
	}
	return FormatThaiDate(t, short, thaiNumerals)
}
