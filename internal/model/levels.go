package model

// MaxLevel is the top level for both towns and trains.
const MaxLevel = 3

// TownLevel is one row of the town level table. NextLevelPrice is the armor
// cost of upgrading FROM this level; zero means no further level exists.
type TownLevel struct {
	PopulationCapacity int `yaml:"population_capacity"`
	ProductCapacity    int `yaml:"product_capacity"`
	ArmorCapacity      int `yaml:"armor_capacity"`
	TrainCooldown      int `yaml:"train_cooldown"`
	NextLevelPrice     int `yaml:"next_level_price"`
}

// TrainLevel is one row of the train level table.
type TrainLevel struct {
	GoodsCapacity   int `yaml:"goods_capacity"`
	FuelCapacity    int `yaml:"fuel_capacity"`
	FuelConsumption int `yaml:"fuel_consumption"`
	NextLevelPrice  int `yaml:"next_level_price"`
}
