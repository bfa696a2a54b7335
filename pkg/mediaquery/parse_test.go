package mediaquery

import (
	"strings"
	"testing"
)

func TestCompile_Valid(t *testing.T) {
	exprs := []string{
		"(max-width: 768px)",
		"(min-width: 40em)",
		"screen",
		"print",
		"all",
		"only screen",
		"not print",
		"screen and (min-width: 768px) and (max-width: 1024px)",
		"(orientation: landscape)",
		"(400px < width <= 900px)",
		"(width >= 400px)",
		"(aspect-ratio: 16/9)",
		"(min-resolution: 2dppx)",
		"(prefers-color-scheme: dark)",
		"(hover: none)",
		"(any-pointer: coarse)",
		"(max-width: 600px), print",
		"(width)",
		"not (max-width: 300px)",
		"(max-device-width: 768px)",
		"",
	}

	for _, expr := range exprs {
		if _, err := Compile(expr); err != nil {
			t.Errorf("Compile(%q) failed: %v", expr, err)
		}
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		wantCode string
	}{
		{"unknown feature", "(max-widht: 768px)", "E021"},
		{"unknown bare feature", "(colr: red)", "E021"},
		{"unknown media type", "tv and (min-width: 100px)", "E022"},
		{"invalid keyword", "(orientation: sideways)", "E023"},
		{"number for dimension", "(max-width: 768)", "E023"},
		{"keyword for dimension", "(min-width: large)", "E023"},
		{"unitless resolution", "(min-resolution: 2)", "E023"},
		{"unclosed paren", "(max-width: 768px", "E024"},
		{"range on discrete feature", "(orientation < landscape)", "E025"},
		{"mixed range direction", "(400px < width > 900px)", "E025"},
		{"missing value", "(max-width:)", "E026"},
		{"prefix without value", "(min-width)", "E026"},
		{"trailing comma", "(max-width: 600px),", "E027"},
		{"empty list item", "(max-width: 600px), , print", "E027"},
		{"bad length unit", "(max-width: 768pt)", "E028"},
		{"bad resolution unit", "(min-resolution: 2dpcm)", "E028"},
		{"stray token", "(max-width: 768px) print", "E020"},
		{"only with paren", "only (max-width: 768px)", "E022"},
		{"bad character", "(max-width: 768px) @media", "E020"},
		{"min prefix in range", "(min-width < 600px)", "E025"},
		{"zero ratio denominator", "(aspect-ratio: 16/0)", "E023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			if err == nil {
				t.Fatalf("Compile(%q) should fail", tt.expr)
			}
			pe, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("Compile(%q) returned %T, want *ParseError", tt.expr, err)
			}
			if pe.Code != tt.wantCode {
				t.Errorf("Compile(%q) code = %s (%s), want %s", tt.expr, pe.Code, pe.Message, tt.wantCode)
			}
			if pe.Query != tt.expr {
				t.Errorf("ParseError.Query = %q, want %q", pe.Query, tt.expr)
			}
			if pe.Pos < 0 || pe.Pos > len(tt.expr) {
				t.Errorf("ParseError.Pos = %d out of range for %q", pe.Pos, tt.expr)
			}
		})
	}
}

func TestParseError_Position(t *testing.T) {
	_, err := Compile("(max-widht: 768px)")
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	// The offending feature name starts right after the paren.
	if pe.Pos != 1 {
		t.Errorf("Pos = %d, want 1", pe.Pos)
	}
	if !strings.Contains(pe.Error(), "max-widht") {
		t.Errorf("Error() = %q, should name the feature", pe.Error())
	}
	if !strings.Contains(pe.Error(), "offset 1") {
		t.Errorf("Error() = %q, should report the offset", pe.Error())
	}
}

func TestMustCompile(t *testing.T) {
	q := MustCompile("(min-width: 768px)")
	if q == nil {
		t.Fatal("MustCompile returned nil")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustCompile should panic on an invalid expression")
		}
	}()
	MustCompile("(max-widht: 768px)")
}

func TestCompile_WhitespaceTolerance(t *testing.T) {
	exprs := []string{
		"( max-width : 768px )",
		"(max-width:768px)",
		"screen   and   (min-width:768px)",
		"(400px<width<=900px)",
		"\t(orientation:\nportrait)",
	}
	for _, expr := range exprs {
		if _, err := Compile(expr); err != nil {
			t.Errorf("Compile(%q) failed: %v", expr, err)
		}
	}
}
