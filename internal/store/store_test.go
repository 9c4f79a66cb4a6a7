package store

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"sync"
	"testing"

	"github.com/rickgao/arbwatch/internal/model"
)

func quote(market string, price, spread float64) model.Quote {
	return model.Quote{Asset: "Copper", Market: market, Price: price, Spread: spread}
}

func mustMerge(t *testing.T, s *Store, asset string, q model.Quote) MergeResult {
	t.Helper()
	res, err := s.Merge(asset, q)
	if err != nil {
		t.Fatalf("Merge(%q, %+v) error = %v", asset, q, err)
	}
	return res
}

func mustRead(t *testing.T, s *Store, asset string) model.AssetBestRecord {
	t.Helper()
	rec, err := s.Read(asset)
	if err != nil {
		t.Fatalf("Read(%q) error = %v", asset, err)
	}
	return rec
}

func TestNew(t *testing.T) {
	t.Run("initial records", func(t *testing.T) {
		s := New([]string{"Copper", "Oil"}, WithInitialMarket("US"))

		if s.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", s.Len())
		}
		rec := mustRead(t, s, "Oil")
		if !math.IsInf(rec.BestBuyPrice, 1) {
			t.Errorf("BestBuyPrice = %v, want +Inf", rec.BestBuyPrice)
		}
		if rec.BestSellPrice != 0 {
			t.Errorf("BestSellPrice = %v, want 0", rec.BestSellPrice)
		}
		if rec.BestBuyMarket != "US" || rec.BestSellMarket != "US" {
			t.Errorf("markets = (%q, %q), want (US, US)", rec.BestBuyMarket, rec.BestSellMarket)
		}
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		s := New([]string{"Oil", "Copper", "Oil"})
		if got := s.Assets(); !reflect.DeepEqual(got, []string{"Copper", "Oil"}) {
			t.Errorf("Assets() = %v, want [Copper Oil]", got)
		}
	})

	t.Run("default initial market is empty", func(t *testing.T) {
		s := New([]string{"Copper"})
		rec := mustRead(t, s, "Copper")
		if rec.BestBuyMarket != "" || rec.BestSellMarket != "" {
			t.Errorf("markets = (%q, %q), want empty", rec.BestBuyMarket, rec.BestSellMarket)
		}
	})
}

func TestMerge_CopperScenario(t *testing.T) {
	s := New([]string{"Copper"})

	res := mustMerge(t, s, "Copper", quote("US", 100, 2))
	if !res.BuyUpdated || !res.SellUpdated {
		t.Errorf("first merge updated = (%v, %v), want (true, true)", res.BuyUpdated, res.SellUpdated)
	}
	want := model.AssetBestRecord{BestBuyPrice: 102, BestBuyMarket: "US", BestSellPrice: 98, BestSellMarket: "US"}
	if got := mustRead(t, s, "Copper"); got != want {
		t.Errorf("after US merge = %+v, want %+v", got, want)
	}

	res = mustMerge(t, s, "Copper", quote("UK", 90, 1))
	if !res.BuyUpdated {
		t.Error("UK merge should update buy side")
	}
	if res.SellUpdated {
		t.Error("UK merge should not update sell side")
	}
	want = model.AssetBestRecord{BestBuyPrice: 90.9, BestBuyMarket: "UK", BestSellPrice: 98, BestSellMarket: "US"}
	if got := mustRead(t, s, "Copper"); got != want {
		t.Errorf("after UK merge = %+v, want %+v", got, want)
	}
	if res.Record != want {
		t.Errorf("MergeResult.Record = %+v, want %+v", res.Record, want)
	}
}

func TestMerge_UnknownAsset(t *testing.T) {
	s := New([]string{"Copper", "Oil"})
	before := s.Snapshot()

	res, err := s.Merge("Gold", model.Quote{Asset: "Gold", Market: "US", Price: 10, Spread: 1})
	if !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("Merge() error = %v, want ErrUnknownAsset", err)
	}
	if res.Updated() {
		t.Error("Merge() on unknown asset reported an update")
	}

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot changed: before %+v, after %+v", before, after)
	}
	if _, err := s.Read("Gold"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("Read() error = %v, want ErrUnknownAsset", err)
	}
}

func TestMerge_SelfRefresh(t *testing.T) {
	s := New([]string{"Copper"})
	mustMerge(t, s, "Copper", quote("US", 100, 2))

	// A worse price from the holding market still replaces its own entry.
	res := mustMerge(t, s, "Copper", quote("US", 120, 2))
	if !res.BuyUpdated || !res.SellUpdated {
		t.Errorf("updated = (%v, %v), want (true, true)", res.BuyUpdated, res.SellUpdated)
	}
	rec := mustRead(t, s, "Copper")
	if rec.BestBuyPrice != 122.4 {
		t.Errorf("BestBuyPrice = %v, want 122.4", rec.BestBuyPrice)
	}
	if rec.BestSellPrice != 117.6 {
		t.Errorf("BestSellPrice = %v, want 117.6", rec.BestSellPrice)
	}
}

func TestMerge_SidesDecidedIndependently(t *testing.T) {
	s := New([]string{"Copper"})
	mustMerge(t, s, "Copper", quote("US", 100, 2)) // buy 102 US, sell 98 US
	mustMerge(t, s, "Copper", quote("UK", 90, 1))  // buy 90.9 UK, sell 98 US

	// DE: buy 111.1 (worse than UK), sell 108.9 (better than US).
	res := mustMerge(t, s, "Copper", quote("DE", 110, 1))
	if res.BuyUpdated {
		t.Error("DE merge should not update buy side")
	}
	if !res.SellUpdated {
		t.Error("DE merge should update sell side")
	}
	want := model.AssetBestRecord{BestBuyPrice: 90.9, BestBuyMarket: "UK", BestSellPrice: 108.9, BestSellMarket: "DE"}
	if got := mustRead(t, s, "Copper"); got != want {
		t.Errorf("record = %+v, want %+v", got, want)
	}
}

func TestMerge_MonotonicBuyWithoutHolder(t *testing.T) {
	s := New([]string{"Copper"})
	rng := rand.New(rand.NewPCG(1, 2))
	markets := []string{"US", "UK", "DE", "JP"}

	prev := math.Inf(1)
	for i := 0; i < 500; i++ {
		rec := mustRead(t, s, "Copper")
		var m string
		for {
			m = markets[rng.IntN(len(markets))]
			if m != rec.BestBuyMarket {
				break
			}
		}
		mustMerge(t, s, "Copper", quote(m, 50+rng.Float64()*100, rng.Float64()*5))

		got := mustRead(t, s, "Copper").BestBuyPrice
		if got > prev {
			t.Fatalf("iteration %d: BestBuyPrice increased from %v to %v", i, prev, got)
		}
		prev = got
	}
}

func TestMerge_Idempotent(t *testing.T) {
	tests := []struct {
		name  string
		setup []model.Quote
		q     model.Quote
	}{
		{"fresh asset", nil, quote("US", 100, 2)},
		{"holder market", []model.Quote{quote("US", 100, 2)}, quote("US", 95, 1)},
		{"non-holder market", []model.Quote{quote("US", 100, 2)}, quote("UK", 200, 1)},
		{"split holders", []model.Quote{quote("US", 100, 2), quote("UK", 90, 1)}, quote("UK", 91, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := New([]string{"Copper"})
			twice := New([]string{"Copper"})
			for _, q := range tt.setup {
				mustMerge(t, once, "Copper", q)
				mustMerge(t, twice, "Copper", q)
			}

			mustMerge(t, once, "Copper", tt.q)
			mustMerge(t, twice, "Copper", tt.q)
			mustMerge(t, twice, "Copper", tt.q)

			if a, b := mustRead(t, once, "Copper"), mustRead(t, twice, "Copper"); a != b {
				t.Errorf("merge once = %+v, merge twice = %+v", a, b)
			}
		})
	}
}

func TestRead_ReturnsCopy(t *testing.T) {
	s := New([]string{"Copper"})
	mustMerge(t, s, "Copper", quote("US", 100, 2))

	rec := mustRead(t, s, "Copper")
	rec.BestBuyPrice = 1
	rec.BestBuyMarket = "XX"

	if got := mustRead(t, s, "Copper"); got.BestBuyPrice != 102 || got.BestBuyMarket != "US" {
		t.Errorf("stored record was mutated through a copy: %+v", got)
	}

	snap := s.Snapshot()
	snap["Copper"] = model.AssetBestRecord{}
	delete(snap, "Copper")
	if s.Len() != 1 {
		t.Errorf("Len() = %d after mutating snapshot, want 1", s.Len())
	}
}

func TestMerge_ConcurrentDistinctMarkets(t *testing.T) {
	const n = 64
	s := New([]string{"Copper"})

	quotes := make([]model.Quote, n)
	for i := range quotes {
		// Distinct effective prices on both sides.
		quotes[i] = quote(fmt.Sprintf("M%02d", i), 100+float64(i)*1.5, 1+float64(i%7)*0.1)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, q := range quotes {
		wg.Add(1)
		go func(q model.Quote) {
			defer wg.Done()
			<-start
			if _, err := s.Merge("Copper", q); err != nil {
				t.Errorf("Merge() error = %v", err)
			}
		}(q)
	}
	close(start)
	wg.Wait()

	// Each market merges once, so every permutation ends at the global
	// min buy and max sell.
	want := model.NewAssetBestRecord("")
	for _, q := range quotes {
		if b := q.EffectiveBuy(); b < want.BestBuyPrice {
			want.BestBuyPrice, want.BestBuyMarket = b, q.Market
		}
		if sl := q.EffectiveSell(); sl > want.BestSellPrice {
			want.BestSellPrice, want.BestSellMarket = sl, q.Market
		}
	}

	if got := mustRead(t, s, "Copper"); got != want {
		t.Errorf("record = %+v, want %+v", got, want)
	}
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	s := New([]string{"Copper", "Oil"})
	markets := []string{"US", "UK", "DE"}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				asset := "Copper"
				if i%2 == 0 {
					asset = "Oil"
				}
				q := model.Quote{Asset: asset, Market: markets[(w+i)%len(markets)], Price: 10 + float64(i%13), Spread: 1}
				if _, err := s.Merge(asset, q); err != nil {
					t.Errorf("Merge() error = %v", err)
					return
				}
				rec, err := s.Read(asset)
				if err != nil {
					t.Errorf("Read() error = %v", err)
					return
				}
				if rec.BestSellPrice > 0 && rec.BestSellMarket == "" {
					t.Errorf("torn record observed: %+v", rec)
					return
				}
				_ = s.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestMerge_Version(t *testing.T) {
	s := New([]string{"Copper", "Oil"})

	res := mustMerge(t, s, "Copper", quote("US", 100, 2))
	if res.Version != 1 {
		t.Fatalf("first merge Version = %d, want 1", res.Version)
	}

	// UK neither beats a side nor holds one: no change, version unchanged.
	res = mustMerge(t, s, "Copper", quote("UK", 100, 5))
	if res.Updated() {
		t.Fatalf("non-improving quote updated the record: %+v", res)
	}
	if res.Version != 1 {
		t.Errorf("unchanged merge Version = %d, want 1", res.Version)
	}

	res = mustMerge(t, s, "Copper", quote("UK", 90, 1))
	if res.Version != 2 {
		t.Errorf("Version = %d, want 2", res.Version)
	}

	oil := mustMerge(t, s, "Oil", model.Quote{Asset: "Oil", Market: "US", Price: 70, Spread: 1})
	if oil.Version != 1 {
		t.Errorf("Oil Version = %d, want 1 (versions are per asset)", oil.Version)
	}
}

func TestMerge_VersionOrdersConcurrentMerges(t *testing.T) {
	s := New([]string{"Copper"})
	markets := []string{"US", "UK", "DE", "JP", "CN", "IN"}

	var (
		mu     sync.Mutex
		latest MergeResult
		wg     sync.WaitGroup
	)
	for _, m := range markets {
		wg.Add(1)
		go func(market string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				price := 50 + rand.Float64()*100
				res, err := s.Merge("Copper", quote(market, price, 1))
				if err != nil {
					t.Errorf("Merge: %v", err)
					return
				}
				mu.Lock()
				if res.Version > latest.Version {
					latest = res
				}
				mu.Unlock()
			}
		}(m)
	}
	wg.Wait()

	if got := mustRead(t, s, "Copper"); got != latest.Record {
		t.Errorf("highest-version result %+v differs from stored %+v", latest.Record, got)
	}
}
