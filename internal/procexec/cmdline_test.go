package procexec

import (
	"reflect"
	"testing"
)

func TestParseCommandLine(t *testing.T) {
	cases := []struct {
		name string
		line string
		want []string
	}{
		{"simple", "ffmpeg -y -i in.png", []string{"ffmpeg", "-y", "-i", "in.png"}},
		{"quoted spaces", `java -jar "/opt/my worker/frame.jar" "gbr4_v2"`, []string{"java", "-jar", "/opt/my worker/frame.jar", "gbr4_v2"}},
		{"escaped quote", `echo "say \"hi\""`, []string{"echo", `say "hi"`}},
		{"escaped backslash", `echo c:\\dir`, []string{"echo", `c:\dir`}},
		{"other backslash kept", `printf a\nb`, []string{"printf", `a\nb`}},
		{"extra whitespace", "  a \t b  ", []string{"a", "b"}},
		{"empty quotes dropped", `a "" b`, []string{"a", "b"}},
		{"unterminated quote", `a "b c`, []string{"a", "b c"}},
		{"empty", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseCommandLine(tc.line)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseCommandLine(%q) = %#v, want %#v", tc.line, got, tc.want)
			}
		})
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	for _, value := range []string{`plain`, `with space`, `q"uote`, `back\slash`, `2010-01-01T00:00:00Z`} {
		got := ParseCommandLine("cmd " + Quote(value))
		if len(got) != 2 || got[1] != value {
			t.Fatalf("round trip of %q produced %#v", value, got)
		}
	}
}

func TestMergeEnvOverrides(t *testing.T) {
	got := mergeEnv([]string{"PATH=/bin", "NCANIMATE_REGION=old"}, map[string]string{"NCANIMATE_REGION": "qld", "DATABASE_NAME": "ereefs"})
	want := []string{"PATH=/bin", "DATABASE_NAME=ereefs", "NCANIMATE_REGION=qld"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mergeEnv = %#v, want %#v", got, want)
	}
}
