package rdb

import "time"

// SubnetRecord is the RDB persistence model for domain.SubnetAllocation.
// Table name: subnets
type SubnetRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	Cluster   string    `gorm:"type:text;not null;index"`
	Location  string    `gorm:"type:text"`
	Subnet    string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
}

func (SubnetRecord) TableName() string { return "subnets" }
