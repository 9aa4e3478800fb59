package chunk

import (
	"strings"
	"testing"
)

func TestFromHTMLSections(t *testing.T) {
	html := `<html><head><title>Billing API Guide</title></head><body>
<nav>Home | Docs | Support</nav>
<h1>Billing API</h1>
<p>The Billing API lets you create invoices and track payment status in real time.</p>
<h2>Authentication</h2>
<p>Every request must carry an API key in the X-Api-Key header. Keys are scoped per environment.</p>
<h2>Rate limits</h2>
<p>Clients may issue up to 100 requests per minute. Exceeding the limit returns status 429.</p>
<footer>Copyright</footer>
</body></html>`

	chunks, err := FromHTML(html, "https://docs.example.com/billing", "")
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}

	for _, c := range chunks {
		if c.Title != "Billing API Guide" {
			t.Errorf("title = %q", c.Title)
		}
		if len(c.Content) < MinContentLen {
			t.Errorf("chunk below minimum length: %q", c.Content)
		}
		if strings.Contains(c.Content, "Home | Docs") || strings.Contains(c.Content, "Copyright") {
			t.Errorf("boilerplate leaked into chunk:\n%s", c.Content)
		}
	}

	authChunk := findSection(t, chunks, "Authentication")
	if !strings.Contains(authChunk.Content, "X-Api-Key") {
		t.Errorf("authentication section content:\n%s", authChunk.Content)
	}
}

// A code block larger than the target size must stay in one chunk.
func TestFromHTMLKeepsCodeBlocksWhole(t *testing.T) {
	code := strings.Repeat("client.invoices.create(amount=100)\n", 80)
	html := `<body>
<h2>Usage example</h2>
<p>The snippet below creates an invoice for every pending order in the batch.</p>
<pre>` + code + `</pre>
</body>`

	chunks, err := FromHTML(html, "https://docs.example.com/usage", "Usage")
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}

	var found int
	for _, c := range chunks {
		if n := strings.Count(c.Content, "client.invoices.create"); n > 0 {
			found++
			if n != 80 {
				t.Errorf("code block split across chunks: %d of 80 lines in one chunk", n)
			}
		}
	}
	if found != 1 {
		t.Errorf("code block appears in %d chunks, want 1", found)
	}
}

func TestFromHTMLSplitsLongSectionsAtSentences(t *testing.T) {
	sentence := "Webhooks deliver events to your endpoint within a few seconds of the change. "
	html := "<body><h2>Webhooks</h2><p>" + strings.Repeat(sentence, 60) + "</p></body>"

	chunks, err := FromHTML(html, "https://docs.example.com/webhooks", "Webhooks")
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("long section produced %d chunks, want a split", len(chunks))
	}
	for _, c := range chunks {
		// Each piece ends on a sentence boundary, never mid-sentence.
		trimmed := strings.TrimSpace(c.Content)
		if !strings.HasSuffix(trimmed, ".") {
			t.Errorf("chunk does not end at a sentence boundary: ...%q", trimmed[len(trimmed)-20:])
		}
	}
}

func TestFromHTMLHeadinglessPage(t *testing.T) {
	sentence := "The sandbox mirrors production behavior for all endpoints. "
	html := "<body><p>" + strings.Repeat(sentence, 70) + "</p></body>"

	chunks, err := FromHTML(html, "https://docs.example.com/sandbox", "Sandbox")
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("windowing produced %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		if c.Section != SectionMain {
			t.Errorf("chunk %d section = %q, want %q", i, c.Section, SectionMain)
		}
		if len(c.Content) > TargetChunkSize {
			t.Errorf("chunk %d exceeds target size: %d", i, len(c.Content))
		}
	}
}

func TestFromHTMLEmptyPage(t *testing.T) {
	chunks, err := FromHTML("<body><p>hi</p></body>", "https://docs.example.com/empty", "")
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("near-empty page produced %d chunks", len(chunks))
	}
}
