package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"essaygrader/internal/apperrors"
)

// fakePages records which pages were read.
type fakePages struct {
	texts  []string
	errs   map[int]error
	panics map[int]bool
	read   []int
}

func (f *fakePages) NumPage() int { return len(f.texts) }

func (f *fakePages) PageText(n int) (string, error) {
	f.read = append(f.read, n)
	if f.panics[n] {
		panic("broken content stream")
	}
	if err := f.errs[n]; err != nil {
		return "", err
	}
	return f.texts[n-1], nil
}

func TestPagesTextCapsAtMaxPages(t *testing.T) {
	req := require.New(t)
	src := &fakePages{}
	for i := 1; i <= 7; i++ {
		src.texts = append(src.texts, fmt.Sprintf("page %d", i))
	}

	text, n := pagesText(context.Background(), src, DefaultMaxPages)

	req.Equal(5, n)
	req.Equal("page 1\npage 2\npage 3\npage 4\npage 5", text)
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, src.read); diff != "" {
		t.Errorf("pages read (-want +got):\n%s", diff)
	}

	// Content past the cap never matters.
	src2 := &fakePages{texts: append(append([]string{}, src.texts[:5]...), "SECRET", "MORE SECRET")}
	text2, _ := pagesText(context.Background(), src2, DefaultMaxPages)
	req.Equal(text, text2)
}

func TestPagesTextEmptyPages(t *testing.T) {
	req := require.New(t)
	src := &fakePages{
		texts:  []string{"intro", "ignored", "ignored", "end"},
		errs:   map[int]error{2: errors.New("no font")},
		panics: map[int]bool{3: true},
	}

	text, n := pagesText(context.Background(), src, DefaultMaxPages)

	req.Equal(4, n)
	req.Equal("intro\n\n\nend", text)
}

func TestPagesTextShortDocument(t *testing.T) {
	text, n := pagesText(context.Background(), &fakePages{texts: []string{"only"}}, DefaultMaxPages)
	require.Equal(t, 1, n)
	require.Equal(t, "only", text)
}

func TestExtractMalformedPDF(t *testing.T) {
	req := require.New(t)
	e := New(Config{})

	_, err := e.Extract(context.Background(), []byte("this is not a pdf at all"), "essay.PDF")

	var ee *apperrors.ExtractionError
	req.ErrorAs(err, &ee)
	req.Equal("essay.PDF", ee.Filename)
}

func TestExtractPlainText(t *testing.T) {
	req := require.New(t)
	e := New(Config{})

	data := append([]byte("Caf\xc3\xa9 "), 0xff, 0xfe)
	data = append(data, []byte("essay")...)

	res, err := e.Extract(context.Background(), data, "essay.txt")
	req.NoError(err)
	req.Equal(FormatText, res.Format)
	req.Equal("Café essay", res.Text)
}

func TestExtractUnknownExtensionIsText(t *testing.T) {
	res, err := New(Config{}).Extract(context.Background(), []byte("hello"), "README")
	require.NoError(t, err)
	require.Equal(t, "hello", res.Text)
}

func TestExtractHTML(t *testing.T) {
	req := require.New(t)
	page := `<html><head><style>p{color:red}</style><script>alert(1)</script></head>
<body><h1>My Essay</h1>
<p>Homework   helps
students.</p></body></html>`

	res, err := New(Config{}).Extract(context.Background(), []byte(page), "essay.HTML")
	req.NoError(err)
	req.Equal(FormatHTML, res.Format)
	req.Equal("My Essay Homework helps students.", res.Text)
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"a.pdf":           FormatPDF,
		"A.Pdf":           FormatPDF,
		"a.htm":           FormatHTML,
		"a.html":          FormatHTML,
		"a.txt":           FormatText,
		"a.docx":          FormatText,
		"pdf":             FormatText,
		"archive.pdf.txt": FormatText,
	}
	for name, want := range tests {
		require.Equal(t, want, FormatFor(name), name)
	}
}
