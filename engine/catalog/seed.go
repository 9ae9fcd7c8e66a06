package catalog

import (
	"context"

	"github.com/partshub/fitment/engine/domain"
)

// yearSpan expands an inclusive range into the discrete model years a
// vehicle node carries.
func yearSpan(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		out = append(out, y)
	}
	return out
}

// SeedVehicles is a starter taxonomy for fresh installations and local
// development. Production catalogs are imported through the indexer.
var SeedVehicles = []domain.Vehicle{
	{Brand: "Toyota", Family: "Hilux", Model: "Hilux SRV", Line: "4x4", Transmission: "manual", Fuel: "diesel", EngineType: "2.8 TD", Years: yearSpan(2016, 2024)},
	{Brand: "Toyota", Family: "Hilux", Model: "Hilux SR", Line: "4x2", Transmission: "manual", Fuel: "diesel", EngineType: "2.4 TD", Years: yearSpan(2016, 2024)},
	{Brand: "Toyota", Family: "Corolla", Model: "Corolla XEI", Transmission: "automatic", Fuel: "gasoline", EngineType: "2.0", Years: yearSpan(2014, 2024)},
	{Brand: "Toyota", Family: "Etios", Model: "Etios XLS", Transmission: "manual", Fuel: "gasoline", EngineType: "1.5", Years: yearSpan(2013, 2022)},
	{Brand: "Volkswagen", Family: "Amarok", Model: "Amarok V6", Line: "4x4", Transmission: "automatic", Fuel: "diesel", EngineType: "3.0 V6", Years: yearSpan(2018, 2024)},
	{Brand: "Volkswagen", Family: "Gol", Model: "Gol Trend", Transmission: "manual", Fuel: "gasoline", EngineType: "1.6", Years: yearSpan(2008, 2023)},
	{Brand: "Volkswagen", Family: "Vento", Model: "Vento GLI", Transmission: "automatic", Fuel: "gasoline", EngineType: "2.0 TSI", Years: yearSpan(2017, 2024)},
	{Brand: "Ford", Family: "Ranger", Model: "Ranger Limited", Line: "4x4", Transmission: "automatic", Fuel: "diesel", EngineType: "3.2 TD", Years: yearSpan(2012, 2023)},
	{Brand: "Ford", Family: "Focus", Model: "Focus SE", Transmission: "manual", Fuel: "gasoline", EngineType: "2.0", Years: yearSpan(2013, 2019)},
	{Brand: "Chevrolet", Family: "S10", Model: "S10 High Country", Line: "4x4", Transmission: "automatic", Fuel: "diesel", EngineType: "2.8 TD", Years: yearSpan(2016, 2024)},
	{Brand: "Chevrolet", Family: "Cruze", Model: "Cruze LTZ", Transmission: "automatic", Fuel: "gasoline", EngineType: "1.4 Turbo", Years: yearSpan(2016, 2024)},
	{Brand: "Fiat", Family: "Toro", Model: "Toro Freedom", Transmission: "automatic", Fuel: "diesel", EngineType: "2.0 MJ", Years: yearSpan(2016, 2024)},
	{Brand: "Fiat", Family: "Cronos", Model: "Cronos Drive", Transmission: "manual", Fuel: "gasoline", EngineType: "1.3", Years: yearSpan(2018, 2024)},
	{Brand: "Renault", Family: "Duster", Model: "Duster Oroch", Transmission: "manual", Fuel: "gasoline", EngineType: "2.0", Years: yearSpan(2015, 2023)},
	{Brand: "Renault", Family: "Kangoo", Model: "Kangoo Express", Transmission: "manual", Fuel: "diesel", EngineType: "1.5 dCi", Years: yearSpan(2018, 2024)},
	{Brand: "Peugeot", Family: "208", Model: "208 Allure", Transmission: "automatic", Fuel: "gasoline", EngineType: "1.6", Years: yearSpan(2020, 2024)},
}

// Seed upserts the starter vehicles. It is idempotent; existing nodes are
// merged, never duplicated.
func (s *Store) Seed(ctx context.Context) (int, error) {
	for i, v := range SeedVehicles {
		if _, err := s.SaveVehicle(ctx, v); err != nil {
			return i, err
		}
	}
	return len(SeedVehicles), nil
}
