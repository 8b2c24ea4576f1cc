package models

// All lists every persisted model; test databases auto-migrate from it.
func All() []any {
	return []any{
		&Category{},
		&ItemManagementProfile{},
		&Item{},
		&ItemImage{},
		&WishlistEntry{},
		&Visitor{},
		&ItemView{},
		&CartActivity{},
		&Rental{},
		&Review{},
		&DailySiteStat{},
		&TrafficSourceStat{},
		&DeviceStat{},
		&CategoryStat{},
		&OutboxEvent{},
	}
}
