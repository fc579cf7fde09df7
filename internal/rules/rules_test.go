package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTables_Decode(t *testing.T) {
	tb, err := DefaultTables()
	if err != nil {
		t.Fatalf("DefaultTables: %v", err)
	}
	if len(tb.TextTransferKeywords) != 14 || len(tb.TransferProductTypes) != 7 || len(tb.Correction) != 30 {
		t.Fatalf("unexpected table sizes: kw=%d types=%d corr=%d",
			len(tb.TextTransferKeywords), len(tb.TransferProductTypes), len(tb.Correction))
	}
	if tb.NameplateType != "Refrigerator Nameplate" || tb.InStockLabel != "有货" || tb.NoLinkURL != "无链接" {
		t.Fatalf("unexpected labels: %+v", tb)
	}
}

func TestTextRule(t *testing.T) {
	e := Default()
	cases := []struct {
		in      string
		want    bool
		keyword string
	}{
		{"我要退货", true, "退货"},
		{"请问怎么咨询人工客服", false, ""},
		{"咨询人工客服，我要退款", false, ""},
		{"这个压缩机有货吗", false, ""},
		{"帮我转人工", true, "转人工"},
		{"", false, ""},
	}
	for _, tc := range cases {
		kw, got := e.TextKeyword(tc.in)
		if got != tc.want || kw != tc.keyword {
			t.Fatalf("TextKeyword(%q) = (%q,%v); want (%q,%v)", tc.in, kw, got, tc.keyword, tc.want)
		}
		if e.NeedsTransferText(tc.in) != tc.want {
			t.Fatalf("NeedsTransferText(%q) mismatch", tc.in)
		}
	}
	d := e.TextDecision("我要退货")
	if !d.Escalate || d.Reason != ReasonTextKeyword || d.String() != "text_keyword:退货" {
		t.Fatalf("TextDecision unexpected: %+v", d)
	}
	if e.TextDecision("你好").String() != "handle" {
		t.Fatalf("expected handle decision")
	}
}

func TestImageRule(t *testing.T) {
	e := Default()
	inStock := []Link{{Status: "全新", URL: "https://item.taobao.com/item.htm?id=1"}}

	cases := []struct {
		name   string
		items  []ImageItem
		want   bool
		reason string
	}{
		{"empty", nil, false, ""},
		{"all out of stock", []ImageItem{
			{Type: "Compressor", Stock: "无货", Links: inStock},
			{Type: "Compressor", Stock: "无货", Links: inStock},
		}, true, ReasonAllOutOfStock},
		{"all nameplate mixed stock", []ImageItem{
			{Type: "Refrigerator Nameplate", Stock: "无货"},
			{Type: "Refrigerator Nameplate", Stock: "有货"},
		}, false, ""},
		{"nameplate all out of stock still handled", []ImageItem{
			{Type: "Refrigerator Nameplate", Stock: "无货"},
		}, false, ""},
		{"one transfer type wins", []ImageItem{
			{Type: "Compressor", Stock: "有货", Links: inStock},
			{Type: "Drain Pump", Stock: "有货", Links: inStock},
		}, true, ReasonTransferType},
		{"transfer type beats nameplate", []ImageItem{
			{Type: "Refrigerator Nameplate", Stock: "有货"},
			{Type: "sensor", Stock: "有货"},
		}, true, ReasonTransferType},
		{"all without links", []ImageItem{
			{Type: "Compressor", Stock: "有货", Links: []Link{{Status: "拆机", URL: "无链接"}}},
			{Type: "Mainboard", Stock: "有货"},
		}, true, ReasonAllNoLink},
		{"mixed stock with a link", []ImageItem{
			{Type: "Compressor", Stock: "有货", Links: inStock},
			{Type: "Mainboard", Stock: "无货"},
		}, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := e.ImageDecision(tc.items)
			if d.Escalate != tc.want || d.Reason != tc.reason {
				t.Fatalf("ImageDecision = %+v; want escalate=%v reason=%q", d, tc.want, tc.reason)
			}
			if e.NeedsTransferImage(tc.items) != tc.want {
				t.Fatalf("NeedsTransferImage mismatch")
			}
		})
	}
}

func TestCorrectionAndClean(t *testing.T) {
	e := Default()
	if got := e.Correct("DZ90X10"); got != "DZ90X1D" {
		t.Fatalf("Correct(DZ90X10) = %q", got)
	}
	if got := e.Correct("dz90x10"); got != "dz90x10" {
		t.Fatalf("correction must be case-sensitive, got %q", got)
	}
	if got := e.Correct("UNKNOWN1"); got != "UNKNOWN1" {
		t.Fatalf("unknown input must pass through, got %q", got)
	}
	if got := Clean("  dz90x1d!! "); got != "dz90x1d" {
		t.Fatalf("Clean = %q", got)
	}
	if got := Clean("【DZ 120V1D】"); got != "DZ120V1D" {
		t.Fatalf("Clean inner space/edges = %q", got)
	}
	if Clean("") != "" || Clean("  !! ") != "" {
		t.Fatalf("Clean of empty/non-alnum must be empty")
	}
	if got := e.NormalizeModel("VFA090CY!"); got != "VFA090CY1" {
		t.Fatalf("NormalizeModel = %q", got)
	}
}

func TestLabels(t *testing.T) {
	e := Default()
	if e.ProductType("变频板") != "InverterBoard" || e.ProductType("Compressor") != "Compressor" {
		t.Fatalf("ProductType mapping unexpected")
	}
	if e.StatusLabel("2") != "全新" || e.StatusLabel("x") != "x" {
		t.Fatalf("StatusLabel mapping unexpected")
	}
	if e.StockLabel(3) != "有货" || e.StockLabel(0) != "无货" {
		t.Fatalf("StockLabel unexpected")
	}
	if !e.IsRecognitionError("class_error") || e.IsRecognitionError("Compressor") {
		t.Fatalf("IsRecognitionError unexpected")
	}
}

func TestSystemMessageAndEmoticon(t *testing.T) {
	e := Default()
	if !e.IsSystemMessage("客服小王将为您服务") {
		t.Fatalf("service phrase should be a system message")
	}
	if !e.IsSystemMessage("会话已转交给wsy001") {
		t.Fatalf("handoff pair should be a system message")
	}
	if e.IsSystemMessage("会话已转交给客服") {
		t.Fatalf("handoff needs both phrases")
	}
	if !e.IsEmoticon("/:^_^") || e.IsEmoticon("/:^_^^^") || e.IsEmoticon("hello") {
		t.Fatalf("IsEmoticon unexpected")
	}
}

func TestTestUsers(t *testing.T) {
	e := Default(WithTestUsers(" 2219368640 ", ""))
	if !e.IsTestUser("tb50918310") || !e.IsTestUser("nobody", "2219368640") {
		t.Fatalf("expected test users to match")
	}
	if e.IsTestUser("", "someone") {
		t.Fatalf("unexpected test user match")
	}
}

func TestLoad_OverrideFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rules.yaml")
	body := "text_transfer_keywords: [投诉]\ncorrection:\n  ABC0: ABCO\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	e, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !e.NeedsTransferText("我要投诉") || e.NeedsTransferText("我要退货") {
		t.Fatalf("keyword list should be replaced by the override")
	}
	if e.Correct("ABC0") != "ABCO" || e.Correct("DZ90X10") != "DZ90X1D" {
		t.Fatalf("correction map should be extended by the override")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if e, err := Load(""); err != nil || !e.NeedsTransferText("退货") {
		t.Fatalf("empty path should yield defaults: %v", err)
	}
}
