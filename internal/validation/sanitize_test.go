package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "Tom &amp; Jerry", Escape("  Tom & Jerry "))
	assert.Equal(t, "&lt;b&gt;&quot;hola&quot; &#039;x&#039;&lt;/b&gt;", Escape(`<b>"hola" 'x'</b>`))
	assert.Equal(t, "Préstamos", Escape("Préstamos"))
}

func TestStripSlashes(t *testing.T) {
	tests := map[string]string{
		`sin barras`:    `sin barras`,
		`O\'Higgins`:    `O'Higgins`,
		`a\\b`:          `a\b`,
		`termina en \`:  `termina en `,
		`\"citado\"`:    `"citado"`,
	}
	for in, want := range tests {
		assert.Equal(t, want, StripSlashes(in), "input %q", in)
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;alert(&#039;x&#039;)&lt;/script&gt;", Sanitize(` <script>alert(\'x\')</script> `))
}

func TestFormatPhone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"26", "26"},
		{"264", "264"},
		{"2644", "264 4"},
		{"264412", "264 412"},
		{"2644123", "264 412-3"},
		{"2644123456", "264 412-3456"},
		{"(264) 412-3456 99", "264 412-3456"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPhone(tt.in), "input %q", tt.in)
	}
}
