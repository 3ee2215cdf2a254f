package entity

// EngagementPoint is one sample of the time-indexed engagement series.
type EngagementPoint struct {
	Timestamp  float64 `json:"timestamp"`
	Engagement float64 `json:"engagement"`
}

// TopMoment marks a span of notably high engagement.
type TopMoment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Description string  `json:"description"`
}

// DropoffPoint is one sample of the viewer dropoff series.
type DropoffPoint struct {
	Timestamp float64 `json:"timestamp"`
	Retention float64 `json:"retention"`
}

// DeviceBreakdown holds viewing share percentages per device class.
// Shares sum to 100 modulo rounding.
type DeviceBreakdown struct {
	Desktop float64 `json:"desktop"`
	Mobile  float64 `json:"mobile"`
	Tablet  float64 `json:"tablet"`
	TV      float64 `json:"tv"`
}

// VideoAnalytics aggregates viewing and engagement statistics for the
// job's media. Produced at most once per job by an external analytics
// collaborator.
type VideoAnalytics struct {
	Views            int               `json:"views"`
	AverageWatchTime float64           `json:"averageWatchTime"`
	CompletionRate   float64           `json:"completionRate"`
	EngagementScore  float64           `json:"engagementScore"`
	EngagementSeries []EngagementPoint `json:"engagementSeries,omitempty"`
	TopMoments       []TopMoment       `json:"topMoments,omitempty"`
	DropoffSeries    []DropoffPoint    `json:"dropoffSeries,omitempty"`
	Devices          DeviceBreakdown   `json:"devices"`
}
