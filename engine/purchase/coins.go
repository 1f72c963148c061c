package purchase

// CoinPrices 是固定的點數方案表：可購買的點數 → 現金價格。
// 不在表上的數量一律視為不合法的方案
var CoinPrices = map[int64]int64{
	5:   250,
	20:  1000,
	100: 4500,
	150: 5000,
	200: 8000,
	300: 9000,
}
