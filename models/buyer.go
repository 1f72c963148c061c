package models

import (
	"gorm.io/gorm"
)

// Buyer 代表市集中的買家帳戶
// 持有現金餘額與點數餘額，兩者永遠不得為負數
type Buyer struct {
	gorm.Model

	ID       int64  `gorm:"primaryKey;<-:create"`
	Nickname string `gorm:"type:varchar(50)"`
	Cash     int64  `gorm:"not null;default:0;check:cash >= 0"`
	Points   int64  `gorm:"not null;default:0;check:points >= 0"`

	// 外鍵關聯
	Bids []Bid `gorm:"foreignKey:BuyerID"`
}
