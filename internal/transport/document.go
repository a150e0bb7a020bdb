package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ScriptType is the type attribute set on injected script elements.
const ScriptType = "text/javascript"

const blankDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

// Script is a snapshot of one script element in the document head.
type Script struct {
	ID   string
	Type string
	Src  string
}

// Document is a [Transport] that mirrors the browser mechanics: every
// request becomes a <script> element appended to the document head, and
// cancelling removes the element bearing the request's id.
//
// A Document does not load anything itself. When created with a next
// Transport, each request and cancellation is forwarded to it after the
// document has been updated.
type Document struct {
	next Transport

	mu   sync.Mutex
	root *html.Node
	head *html.Node
}

// NewDocument creates a [Document] holding an empty HTML page.
func NewDocument(next Transport) *Document {
	d, err := ParseDocument(strings.NewReader(blankDocument), next)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDocument creates a [Document] from existing HTML.
//
// Parsing follows the HTML5 algorithm, so input without a <head> element,
// or even a bare fragment, still gets one.
func ParseDocument(r io.Reader, next Transport) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	head := findElement(root, func(n *html.Node) bool { return n.DataAtom == atom.Head })
	return &Document{next: next, root: root, head: head}, nil
}

// IssueRequest appends a script element for req to the head.
func (d *Document) IssueRequest(ctx context.Context, req Request) error {
	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr: []html.Attribute{
			{Key: "type", Val: ScriptType},
			{Key: "id", Val: req.ID},
			{Key: "src", Val: req.URL},
		},
	}

	d.mu.Lock()
	d.head.AppendChild(script)
	d.mu.Unlock()

	if d.next != nil {
		return d.next.IssueRequest(ctx, req)
	}
	return nil
}

// Cancel removes the head's script element with the given id, if present.
func (d *Document) Cancel(id string) {
	d.mu.Lock()
	if old := d.scriptByID(id); old != nil {
		d.head.RemoveChild(old)
	}
	d.mu.Unlock()

	if d.next != nil {
		d.next.Cancel(id)
	}
}

// Scripts returns the script elements currently in the head, in order.
func (d *Document) Scripts() []Script {
	d.mu.Lock()
	defer d.mu.Unlock()

	var scripts []Script
	for n := d.head.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode || n.DataAtom != atom.Script {
			continue
		}
		scripts = append(scripts, Script{
			ID:   attr(n, "id"),
			Type: attr(n, "type"),
			Src:  attr(n, "src"),
		})
	}
	return scripts
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	var buf bytes.Buffer

	d.mu.Lock()
	err := html.Render(&buf, d.root)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	_, err = w.Write(buf.Bytes())
	return err
}

// scriptByID finds a head script by id. Callers hold d.mu.
func (d *Document) scriptByID(id string) *html.Node {
	for n := d.head.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script && attr(n, "id") == id {
			return n
		}
	}
	return nil
}

// findElement walks the tree depth-first and returns the first match.
func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
