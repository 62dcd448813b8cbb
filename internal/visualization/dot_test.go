package visualization

import (
	"strings"
	"testing"

	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/network"
	"github.com/agrioracle/agri-oracle/internal/shock"
)

func testNetwork(t *testing.T, shocks ...string) *network.Network {
	t.Helper()
	base := network.NewBuilder(network.DefaultParams()).
		Build(models.InitialCondition{Monsoon: models.MonsoonDisrupted})
	n, err := shock.Apply(base, shocks)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return n
}

func TestRenderDOT_Structure(t *testing.T) {
	dot := RenderDOT(testNetwork(t))

	if !strings.HasPrefix(dot, "digraph oracle {") {
		t.Error("expected digraph header")
	}
	if !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Error("expected closing brace")
	}
	for _, want := range []string{
		`"Monsoon" [label="Monsoon\nP(Disrupted)=0.85"`,
		`"Subsidies" [label="Subsidies\nP(High)=0.15"`,
		`"Yield" [label="Yield\nP(Poor)=0.00"`,
		`"Monsoon" -> "Yield" [label="c=0.90"`,
		`"Yield" -> "Demand"`,
		`"Subsidies" -> "Yield"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "shock1") {
		t.Error("unshocked network should have no shock nodes")
	}
}

func TestRenderDOT_ShocksInOrder(t *testing.T) {
	dot := RenderDOT(testNetwork(t, shock.TradeBan, shock.SevereDrought, shock.NoMajorEvent))

	first := strings.Index(dot, `"shock1" -> "Demand"`)
	second := strings.Index(dot, `"shock2" -> "Monsoon"`)
	if first < 0 || second < 0 || second < first {
		t.Errorf("shock edges missing or out of order\n%s", dot)
	}
	if !strings.Contains(dot, "style=bold") {
		t.Error("expected force shocks drawn bold")
	}
	if !strings.Contains(dot, `"shock3" -> "Monsoon" [label="none", style=dotted]`) {
		t.Errorf("expected baseline shock drawn dotted\n%s", dot)
	}
}

func TestRenderJSON(t *testing.T) {
	g := RenderJSON(testNetwork(t, shock.SubsidyPackage))

	if g["node_count"] != 4 || g["edge_count"] != 3 || g["shock_count"] != 1 {
		t.Errorf("counts = %v/%v/%v", g["node_count"], g["edge_count"], g["shock_count"])
	}
	nodes := g["nodes"].([]map[string]interface{})
	if nodes[0]["id"] != "Monsoon" || nodes[0]["prior"] != 0.85 {
		t.Errorf("nodes[0] = %v", nodes[0])
	}
	shocks := g["shocks"].([]map[string]interface{})
	if shocks[0]["factor"] != "Subsidies" || shocks[0]["kind"] != "force" {
		t.Errorf("shocks[0] = %v", shocks[0])
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatDOT, false},
		{"DOT", FormatDOT, false},
		{"json", FormatJSON, false},
		{"html", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a longer string", 10, "this is..."},
	}

	for _, tt := range tests {
		got := truncate(tt.input, tt.maxLen)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
