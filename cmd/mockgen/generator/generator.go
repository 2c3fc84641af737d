// Package generator produces deterministic mock business snapshots for local runs and demos.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/sources"
)

// Scenarios shape customer behaviour over the generated window.
const (
	ScenarioSteady = "steady"
	ScenarioGrowth = "growth"
	ScenarioChurn  = "churn"
)

type GeneratorConfig struct {
	Scenario  string
	Customers int
	Products  int
	Days      int
	Seed      int64
	Now       time.Time
}

type product struct {
	id, name string
	price    float64
	// popularity is the relative chance the product lands in a basket.
	popularity float64
}

var catalogue = []product{
	{"rice-5kg", "Basmati Rice 5kg", 450, 5},
	{"atta-10kg", "Wheat Atta 10kg", 420, 4},
	{"dal-1kg", "Toor Dal 1kg", 160, 4},
	{"oil-1l", "Sunflower Oil 1L", 140, 3},
	{"sugar-1kg", "Sugar 1kg", 48, 3},
	{"salt-1kg", "Iodised Salt 1kg", 25, 2},
	{"tea-250g", "Assam Tea 250g", 130, 2},
	{"ghee-500ml", "Cow Ghee 500ml", 320, 1},
	{"sweets-1kg", "Assorted Sweets 1kg", 600, 1},
	{"biscuits", "Glucose Biscuits", 30, 3},
	{"soap-4pk", "Bath Soap 4-pack", 160, 2},
	{"detergent-1kg", "Detergent 1kg", 210, 2},
}

var firstNames = []string{"Asha", "Ravi", "Priya", "Imran", "Sunita", "Vikram", "Meera", "Arjun", "Fatima", "Karan", "Lakshmi", "Rahul"}

var competitors = []string{"FreshMart", "CornerKirana", "MegaBazaar"}

// Generate builds a snapshot ending at cfg.Now. The same config always yields
// the same snapshot. progress, when set, is called once per generated day.
func Generate(cfg GeneratorConfig, progress func()) business.Data {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	products := catalogue[:max(1, min(cfg.Products, len(catalogue)))]
	start := business.Day(cfg.Now).AddDate(0, 0, -cfg.Days)

	var d business.Data
	for i := 0; i < cfg.Customers; i++ {
		d.Customers = append(d.Customers, business.CustomerRecord{
			ID:               fmt.Sprintf("c%03d", i+1),
			Name:             fmt.Sprintf("%s %c.", firstNames[i%len(firstNames)], 'A'+rune(i/len(firstNames)%26)),
			RegistrationDate: start.AddDate(0, 0, -rng.Intn(365)),
		})
	}

	// Each customer visits at their own rate; VIPs come often and buy big baskets.
	rates := make([]float64, len(d.Customers))
	for i := range rates {
		rates[i] = 0.03 + rng.Float64()*0.25
	}

	sold := make(map[string]int)
	txSeq := 0
	for day := 0; day < cfg.Days; day++ {
		date := start.AddDate(0, 0, day)
		traffic := seasonalTraffic(date) * scenarioTraffic(cfg.Scenario, day, cfg.Days)

		for i, c := range d.Customers {
			if cfg.Scenario == ScenarioChurn && i%2 == 1 && day > cfg.Days/2 {
				continue
			}
			if rng.Float64() > rates[i]*traffic {
				continue
			}
			txSeq++
			txID := fmt.Sprintf("t%06d", txSeq)
			at := date.Add(time.Duration(9+rng.Intn(12)) * time.Hour)

			basket := 1 + rng.Intn(4)
			total := 0.0
			for b := 0; b < basket; b++ {
				p := pick(rng, products)
				qty := 1 + rng.Intn(3)
				// Prices drift a little so elasticity has something to fit.
				price := math.Round(p.price*(0.95+rng.Float64()*0.1)*100) / 100
				amount := math.Round(price*float64(qty)*100) / 100
				total += amount
				sold[p.id] += qty
				d.Sales = append(d.Sales, business.SalesRecord{Date: at.Add(time.Duration(b) * time.Minute), Amount: amount, ProductID: p.id, CustomerID: c.ID, Quantity: float64(qty)})
			}
			d.Transactions = append(d.Transactions, business.TransactionRecord{ID: txID, CustomerID: c.ID, Amount: math.Round(total*100) / 100, Date: at})
		}
		if progress != nil {
			progress()
		}
	}

	for _, p := range products {
		daily := float64(sold[p.id]) / float64(max(1, cfg.Days))
		minStock := int(math.Ceil(daily * 3))
		d.Inventory = append(d.Inventory, business.InventoryRecord{
			ProductID:    p.id,
			Name:         p.name,
			CurrentStock: int(daily * (rng.Float64() * 30)),
			MinStock:     minStock,
			MaxStock:     max(minStock+10, int(daily*45)),
			UnitCost:     math.Round(p.price*0.72*100) / 100,
			UnitPrice:    p.price,
		})
		for _, comp := range competitors {
			d.CompetitorPrices = append(d.CompetitorPrices, business.CompetitorPrice{
				ProductID:  p.id,
				Competitor: comp,
				Price:      math.Round(p.price*(0.9+rng.Float64()*0.25)*100) / 100,
			})
		}
		d.Suppliers = append(d.Suppliers, business.SupplierTerms{
			ProductID:    p.id,
			Supplier:     "Metro Wholesale",
			LeadTimeDays: float64(3 + rng.Intn(8)),
			OrderCost:    300 + float64(rng.Intn(5))*100,
			FillRate:     0.85 + rng.Float64()*0.15,
		})
	}
	return d
}

// seasonalTraffic lifts weekends and the fortnight before each festival.
func seasonalTraffic(date time.Time) float64 {
	f := 1.0
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		f *= 1.3
	}
	for _, fest := range sources.Festivals(date.Year(), date.Location()) {
		until := fest.Date.Sub(date).Hours() / 24
		if until >= 0 && until <= 14 {
			if fest.Impact == "high" {
				f *= 1.8
			} else {
				f *= 1.3
			}
		}
	}
	return f
}

func scenarioTraffic(scenario string, day, days int) float64 {
	if scenario == ScenarioGrowth && days > 0 {
		return 0.7 + 0.6*float64(day)/float64(days)
	}
	return 1
}

func pick(rng *rand.Rand, products []product) product {
	total := 0.0
	for _, p := range products {
		total += p.popularity
	}
	x := rng.Float64() * total
	for _, p := range products {
		if x < p.popularity {
			return p
		}
		x -= p.popularity
	}
	return products[len(products)-1]
}
