package migros

import (
	"testing"

	"sepet/models"
	"sepet/scraper"
)

func TestSplitPrices(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantPrice string
		wantList  string
	}{
		{"plain", "54,95 TL", "54,95 TL", ""},
		{"money card", "294,95 TL Money ile 219,95 TL", "219,95 TL", "294,95 TL"},
		{"good price badge", "İyi Fiyat 12,50 TL", "12,50 TL", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, list := SplitPrices(tt.text)
			if price != tt.wantPrice || list != tt.wantList {
				t.Errorf("SplitPrices(%q) = (%q, %q), want (%q, %q)", tt.text, price, list, tt.wantPrice, tt.wantList)
			}
		})
	}
}

func TestProductID(t *testing.T) {
	if got := productID("/pinar-sut-1-l-p-1a2b3c"); got != "1a2b3c" {
		t.Errorf("productID = %q, want 1a2b3c", got)
	}
	if got := productID("/kategori"); got != "" {
		t.Errorf("productID = %q, want empty", got)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(models.ShopDescriptor{ID: "migros"}, scraper.Options{}); err == nil {
		t.Fatal("expected error for missing base url")
	}

	s, err := New(models.ShopDescriptor{ID: "migros", BaseURL: "https://www.migros.com.tr"}, scraper.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r, ok := s.(scraper.Reentrant); !ok || r.Reentrant() {
		t.Error("browser-backed scraper must report non-reentrant")
	}
	if c, ok := s.(interface{ Close() error }); !ok || c.Close() != nil {
		t.Error("expected Close to succeed without a started browser")
	}
}
