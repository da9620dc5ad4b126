// Package submission assembles NEOS submission documents.
//
// A Document is the single XML payload sent to NEOS. Its layout is fixed by
// the NEOS AMPL input format; Document.XML reproduces it byte for byte and
// ParseDocument reads it back.
package submission

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Fixed document values.
const (
	// InputType is the NEOS input format tag for AMPL submissions.
	InputType = "AMPL"

	// Priority is the NEOS queue priority. "long" jobs may run past the
	// short-queue time limit.
	Priority = "long"

	// ClientIdentifier is reported to NEOS in the <client> element.
	ClientIdentifier = "goneos NEOS submission tool [https://github.com/3leaps/goneos]"
)

// Document is a complete NEOS submission. Build it with an Assembler and
// treat it as read-only afterwards.
type Document struct {
	XMLName   xml.Name `xml:"document" json:"-"`
	Category  string   `xml:"category" json:"category"`
	Solver    string   `xml:"solver" json:"solver"`
	InputType string   `xml:"inputType" json:"input_type"`
	Client    string   `xml:"client" json:"client"`
	Priority  string   `xml:"priority" json:"priority"`
	Email     string   `xml:"email" json:"email"`
	Model     string   `xml:"model" json:"model"`
	Data      string   `xml:"data" json:"data"`
	Commands  string   `xml:"commands" json:"commands"`
	Comments  string   `xml:"comments" json:"comments"`
}

// XML renders the document in the NEOS layout.
//
// model, data, commands and comments are emitted as CDATA so their bytes
// survive verbatim. Any "]]>" inside them is split across two CDATA
// sections. Metadata fields are XML-escaped.
func (d Document) XML() string {
	var b strings.Builder
	b.Grow(len(d.Model) + len(d.Data) + len(d.Commands) + len(d.Comments) + 512)

	b.WriteString("<document>\n")
	writeElement(&b, "category", d.Category)
	writeElement(&b, "solver", d.Solver)
	writeElement(&b, "inputType", d.InputType)
	writeElement(&b, "client", d.Client)
	writeElement(&b, "priority", d.Priority)
	writeElement(&b, "email", d.Email)
	b.WriteString("\n")
	writeCDATA(&b, "model", d.Model)
	writeCDATA(&b, "data", d.Data)
	writeCDATA(&b, "commands", d.Commands)
	writeCDATA(&b, "comments", d.Comments)
	b.WriteString("\n</document>\n")
	return b.String()
}

// Size returns the length of the rendered document in bytes.
func (d Document) Size() int {
	return len(d.XML())
}

// ParseDocument reads a rendered document back.
func ParseDocument(data []byte) (*Document, error) {
	var d Document
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse submission document: %w", err)
	}
	return &d, nil
}

func writeElement(b *strings.Builder, name, value string) {
	b.WriteString("<" + name + ">")
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString("</" + name + ">\n")
}

func writeCDATA(b *strings.Builder, name, value string) {
	b.WriteString("<" + name + "><![CDATA[")
	b.WriteString(strings.ReplaceAll(value, "]]>", "]]]]><![CDATA[>"))
	b.WriteString("]]></" + name + ">\n")
}
