package repository

// watermarkScope is the single row key of rating_watermark.
const watermarkScope = "ratings"

type driverRating struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	DriverName  string  `gorm:"type:text;not null;uniqueIndex"`
	EloRating   float64 `gorm:"not null"`
	LastUpdated string  `gorm:"type:text;not null;index"`
}

func (driverRating) TableName() string { return "driver_ratings" }

type ratingWatermark struct {
	Scope   string `gorm:"primaryKey;type:text"`
	Season  int    `gorm:"not null"`
	Round   int    `gorm:"not null"`
	SavedAt string `gorm:"type:text;not null"`
}

func (ratingWatermark) TableName() string { return "rating_watermark" }
