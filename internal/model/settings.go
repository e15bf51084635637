package model

// DayHours is the weekly open/close specification for one weekday.
// Minutes are from midnight, salon-local.
type DayHours struct {
	Weekday     int  `json:"weekday"` // 0 = Sunday
	Closed      bool `json:"closed"`
	OpenMinute  int  `json:"open_minute"`
	CloseMinute int  `json:"close_minute"`
}

// BlockedDate closes the salon on a specific date, or on a recurring weekday
// when Recurring is set (Weekday applies, Date is empty).
type BlockedDate struct {
	ID        string `json:"id"`
	Date      string `json:"date,omitempty"` // YYYY-MM-DD
	Weekday   int    `json:"weekday,omitempty"`
	Recurring bool   `json:"recurring"`
	Reason    string `json:"reason,omitempty"`
}

// BookingSettings are the salon-wide knobs for slot computation.
type BookingSettings struct {
	GranularityMins int `json:"granularity_minutes"`
	BufferMins      int `json:"buffer_minutes"`
}

func DefaultBookingSettings() BookingSettings {
	return BookingSettings{GranularityMins: 30, BufferMins: 15}
}
