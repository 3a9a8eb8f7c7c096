package models

// Queue entry statuses.
const (
	QueueStatusWaiting   = "waiting"
	QueueStatusInService = "in_service"
	QueueStatusCompleted = "completed"
	QueueStatusCancelled = "cancelled"
	QueueStatusNoShow    = "no_show"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Queue estimate status colors.
const (
	StatusColorGreen  = "green"
	StatusColorYellow = "yellow"
	StatusColorOrange = "orange"
	StatusColorBlue   = "blue"
)

// Arrival countdown severity bands.
const (
	SeverityNominal  = "nominal"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const (
	// DefaultAvgServiceMinutes is used when a salon has no configured
	// average service time.
	DefaultAvgServiceMinutes = 30

	// DefaultQueueRefreshSeconds is the estimator polling interval.
	DefaultQueueRefreshSeconds = 30

	// DefaultOpenStatusRefreshSeconds is the open-status polling interval.
	DefaultOpenStatusRefreshSeconds = 60

	// DefaultRefreshDebounceMillis coalesces near-simultaneous refresh
	// triggers from the event feed.
	DefaultRefreshDebounceMillis = 250

	// DefaultArrivalWindowSeconds is the countdown progress window used
	// when a deadline is already closer than the window itself.
	DefaultArrivalWindowSeconds = 600

	// ArrivalCriticalSeconds and ArrivalWarningSeconds bound the
	// countdown severity bands.
	ArrivalCriticalSeconds = 120
	ArrivalWarningSeconds  = 300

	// AlmostReadyThresholdMinutes is the remaining wait below which the
	// almost-ready alert fires.
	AlmostReadyThresholdMinutes = 5

	// DefaultLocationTTL время жизни сохраненной геолокации в Redis
	DefaultLocationTTL = 30 * 24 * 60 * 60 // 30 суток в секундах

	// DefaultGeocodeCacheTTL время жизни кэша геокодера
	DefaultGeocodeCacheTTL = 24 * 60 * 60 // 24 часа в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// RateLimitCheckIns количество попыток записи в очередь в окне
	RateLimitCheckIns = 5

	// RateLimitWindow окно ограничения частоты записи
	RateLimitWindow = 60 // 1 минута в секундах

	// DefaultCancellationFeePercent процент от цены при поздней отмене
	DefaultCancellationFeePercent = 20

	// DefaultCancellationCutoffHours за сколько часов отмена еще бесплатна
	DefaultCancellationCutoffHours = 2
)
