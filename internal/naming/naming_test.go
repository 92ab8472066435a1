package naming

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestAllocate_ScansPastExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "U_1.mp4", "U_2.mp4", "U_3.mp4", "U_4.mp4", "U_5.mp4")

	a, err := Allocate(Request{Dir: dir, Prefix: "U", Ext: ".mp4", Start: 1})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if a.Name != "U_6.mp4" {
		t.Fatalf("name = %s, want U_6.mp4", a.Name)
	}
	if a.Next != 7 {
		t.Fatalf("next = %d, want 7", a.Next)
	}
	if a.Path != filepath.Join(dir, "U_6.mp4") {
		t.Fatalf("path = %s", a.Path)
	}
}

func TestAllocate_SidecarMustBeFree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "V_1.mp4", "V_2.mp4", "V_3_thumb.webp")

	a, err := Allocate(Request{Dir: dir, Prefix: "V", Ext: ".mp4", Start: 1, Sidecars: []string{ThumbSuffix}})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if a.Name != "V_4.mp4" {
		t.Fatalf("name = %s, want V_4.mp4", a.Name)
	}
	if got := a.Sidecar(ThumbSuffix); got != filepath.Join(dir, "V_4_thumb.webp") {
		t.Fatalf("sidecar = %s", got)
	}
	if len(a.Paths()) != 2 {
		t.Fatalf("paths = %v", a.Paths())
	}
}

func TestAllocate_TitleToken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "A_1_Demo.m4a")

	a, err := Allocate(Request{Dir: dir, Prefix: "A", Token: "Demo", Ext: ".m4a", Start: 1})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if a.Name != "A_2_Demo.m4a" {
		t.Fatalf("name = %s", a.Name)
	}
}

func TestAllocate_ToleratesGaps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "P_1.jpg", "P_3.jpg")

	a, err := Allocate(Request{Dir: dir, Prefix: "P", Ext: ".jpg", Start: 2})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if a.Name != "P_2.jpg" {
		t.Fatalf("name = %s, want P_2.jpg", a.Name)
	}
}

func TestAllocate_EmptyPrefix(t *testing.T) {
	t.Parallel()

	if _, err := Allocate(Request{Dir: t.TempDir(), Ext: ".mp4"}); err == nil {
		t.Fatalf("expected error for empty prefix")
	}
}

func TestContext_MonotonicPerPrefix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewContext()

	first, err := c.Allocate(dir, "U", "", ".mp4")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	// Not creating the file: the counter still moves forward.
	second, err := c.Allocate(dir, "U", "", ".mp4")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	other, err := c.Allocate(dir, "A", "", ".m4a")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if first.Name != "U_1.mp4" || second.Name != "U_2.mp4" || other.Name != "A_1.m4a" {
		t.Fatalf("got %s, %s, %s", first.Name, second.Name, other.Name)
	}
	if c.Next("U") != 3 || c.Next("A") != 2 || c.Next("V") != 1 {
		t.Fatalf("counters U=%d A=%d V=%d", c.Next("U"), c.Next("A"), c.Next("V"))
	}
}

func TestContext_ConfirmReallocatesWhenTaken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewContext()

	a, err := c.Allocate(dir, "O", "Clip", ".mp4", ThumbSuffix)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	same, err := c.Confirm(a)
	if err != nil || same.Path != a.Path {
		t.Fatalf("confirm free = %v, %v", same.Path, err)
	}

	// A concurrent writer grabbed the name.
	touch(t, dir, "O_1_Clip.mp4", "O_2_Clip_thumb.webp")
	moved, err := c.Confirm(a)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if moved.Name != "O_3_Clip.mp4" {
		t.Fatalf("name = %s, want O_3_Clip.mp4", moved.Name)
	}
	if c.Next("O") != 4 {
		t.Fatalf("next = %d", c.Next("O"))
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "Demo", want: "Demo"},
		{in: "  My   Cool Video ", want: "My_Cool_Video"},
		{in: `a<b>c:d"e/f\g|h?i*j`, want: "a_b_c_d_e_f_g_h_i_j"},
		{in: "..._hidden", want: "hidden"},
		{in: "tab\tand\nnewline", want: "tab_and_newline"},
		{in: "Café", want: "Café"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			if got := Sanitize(tc.in); got != tc.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitize_TruncatesAndIsDeterministic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		title string
		runes int
	}{
		{name: "ascii", title: strings.Repeat("a", 300), runes: MaxTokenLen},
		{name: "two byte runes", title: strings.Repeat("ж", 300), runes: MaxTokenBytes / 2},
		{name: "three byte runes", title: strings.Repeat("日本語", 80), runes: MaxTokenBytes / 3},
		{name: "four byte runes", title: strings.Repeat("🎬", 100), runes: MaxTokenBytes / 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Sanitize(tc.title)
			if n := utf8.RuneCountInString(got); n != tc.runes {
				t.Fatalf("runes = %d, want %d", n, tc.runes)
			}
			if len(got) > MaxTokenBytes || !utf8.ValidString(got) {
				t.Fatalf("token is %d bytes, valid=%v", len(got), utf8.ValidString(got))
			}
			if Sanitize(tc.title) != got {
				t.Fatalf("sanitize must be deterministic")
			}
		})
	}
}

func TestAllocate_LongMultiByteTitle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	token := Sanitize(strings.Repeat("日本語", 80))
	a, err := NewContext().Allocate(dir, "U", token, ".mp4", ThumbSuffix)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := os.WriteFile(a.Path, []byte("x"), 0o644); err != nil {
		t.Fatalf("name must fit the file system: %v", err)
	}
	if err := os.WriteFile(a.Sidecar(ThumbSuffix), []byte("x"), 0o644); err != nil {
		t.Fatalf("sidecar must fit the file system: %v", err)
	}
}

func TestLinkToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://youtu.be/abc123?si=XyZ":         "abc123_XyZ",
		"https://www.youtube.com/watch?v=abc123": "watch_abc123",
		"https://www.instagram.com/p/Cx9/":       "p_Cx9",
		"https://example.com":                    "example.com",
		"not a url":                              "not_a_url",
	}
	for in, want := range cases {
		if got := LinkToken(in); got != want {
			t.Fatalf("LinkToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir,
		"A_2_Demo.m4a",
		"U_1_Demo.mp4",
		"U_1_Demo_thumb.webp",
		"O_4_Demo_video.mp4",
		"U_5_Demo_audio.m4a",
		"A_6_Demo_audio.mp4",
		"U_7_Demo_video.webm",
		"U_3_Other.mp4",
		"temp_download.mp4",
	)

	got, err := Scan(dir, "Demo")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var names []string
	for _, e := range got {
		names = append(names, filepath.Base(e.Path))
	}
	want := "A_2_Demo.m4a,O_4_Demo_video.mp4,U_1_Demo.mp4,U_5_Demo_audio.m4a"
	if strings.Join(names, ",") != want {
		t.Fatalf("scan = %v, want %s", names, want)
	}
	if got[1].Split != "_video" || got[3].Split != "_audio" || got[2].Split != "" {
		t.Fatalf("split halves = %+v", got)
	}

	// A title ending in "audio" is the token, not a split suffix.
	own, err := Scan(dir, "Demo_audio")
	if err != nil || len(own) != 2 || own[0].Prefix != "A" || own[0].Split != "" || own[1].Split != "" {
		t.Fatalf("scan Demo_audio = %+v, %v", own, err)
	}

	none, err := Scan(filepath.Join(dir, "missing"), "Demo")
	if err != nil || len(none) != 0 {
		t.Fatalf("scan missing dir = %v, %v", none, err)
	}
	if empty, _ := Scan(dir, ""); empty != nil {
		t.Fatalf("empty token must not match anything")
	}
}
