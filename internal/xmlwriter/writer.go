// =============================================================================
// Accounting Export Mapper - XML Writer Module
// =============================================================================
//
// This module renders canonical records as an XML document. Every record
// becomes one element holding one child per catalog field, in catalog order.
//
// XML STRUCTURE:
//
//   <Root>                                   <!-- Root element -->
//     <Record n="1">                         <!-- One element per row -->
//       <NrKontrahenta>5261040828</NrKontrahenta>
//       <DowodSprzedazy>FV/1/2026</DowodSprzedazy>
//       <DataWystawienia>2026-01-15</DataWystawienia>
//       <K_19>100.00</K_19>
//     </Record>
//     <Record n="2">
//       <DowodSprzedazy>FV/2/2026</DowodSprzedazy>
//       <DataWystawienia/>                   <!-- Required but empty -->
//     </Record>
//   </Root>
//
// FIELD RULES:
//   - Absent or empty optional fields are omitted.
//   - Required fields are always written, empty ones as self-closing tags,
//     so the gap stays visible in the document.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement is the name of the document element.
	// Default: "Root"
	RootElement string

	// RecordElement is the name of the per-row element.
	// Default: "Record"
	RecordElement string

	// IndexAttribute is the attribute carrying the 1-based record number.
	// Default: "n"
	IndexAttribute string

	// RootAttributes are additional attributes for the root element,
	// written in name order.
	// Example: {"xmlns": "http://crd.gov.pl/wzor/2025/12/19/14090/"}
	RootAttributes map[string]string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "Root",
		RecordElement:         "Record",
		IndexAttribute:        "n",
		RootAttributes:        make(map[string]string),
	}
}

func applyDefaults(options GenerateOptions) GenerateOptions {
	defaults := DefaultGenerateOptions()
	if options.RootElement == "" {
		options.RootElement = defaults.RootElement
	}
	if options.RecordElement == "" {
		options.RecordElement = defaults.RecordElement
	}
	if options.IndexAttribute == "" {
		options.IndexAttribute = defaults.IndexAttribute
	}
	return options
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates an XML document from transformed rows.
//
// PARAMETERS:
//   - rows: The canonical records of a pipeline run.
//   - catalog: The catalog that gives the field order and required flags.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if an element name is not a valid XML name.
func Generate(rows []types.TransformedRow, catalog *types.Catalog) ([]byte, error) {
	return GenerateWithOptions(rows, catalog, DefaultGenerateOptions())
}

// GenerateWithOptions creates an XML document with custom options.
func GenerateWithOptions(rows []types.TransformedRow, catalog *types.Catalog, options GenerateOptions) ([]byte, error) {
	if catalog == nil {
		return nil, fmt.Errorf("no catalog given")
	}
	options = applyDefaults(options)

	if err := checkNames(catalog, options); err != nil {
		return nil, err
	}

	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	}

	doc := buildDocument(rows, catalog, options)
	writeElement(&buffer, doc, options.Indent, 0)

	return buffer.Bytes(), nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// buildDocument constructs the element tree.
func buildDocument(rows []types.TransformedRow, catalog *types.Catalog, options GenerateOptions) XMLElement {
	doc := XMLElement{XMLName: xml.Name{Local: options.RootElement}}

	names := make([]string, 0, len(options.RootAttributes))
	for name := range options.RootAttributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Attributes = append(doc.Attributes, xml.Attr{
			Name:  xml.Name{Local: name},
			Value: options.RootAttributes[name],
		})
	}

	for i, row := range rows {
		doc.Children = append(doc.Children, buildRecordElement(i+1, row, catalog, options))
	}
	return doc
}

// buildRecordElement constructs one record element.
//
// STRUCTURE:
//
//	<Record n="1">
//	  <Field1>value</Field1>
//	  <Field2>value</Field2>
//	</Record>
func buildRecordElement(n int, row types.TransformedRow, catalog *types.Catalog, options GenerateOptions) XMLElement {
	element := XMLElement{
		XMLName: xml.Name{Local: options.RecordElement},
		Attributes: []xml.Attr{
			{Name: xml.Name{Local: options.IndexAttribute}, Value: fmt.Sprintf("%d", n)},
		},
	}

	for _, field := range catalog.Fields {
		value, _ := row.Values.Get(field.Name)
		if value != "" || field.Required {
			element.Children = append(element.Children, createSimpleElement(field.Name, value))
		}
	}

	return element
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// xmlNamePattern accepts the ASCII subset of XML names used by tax schemas.
var xmlNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

func checkNames(catalog *types.Catalog, options GenerateOptions) error {
	var bad []string
	check := func(name string) {
		if !xmlNamePattern.MatchString(name) {
			bad = append(bad, fmt.Sprintf("%q", name))
		}
	}

	check(options.RootElement)
	check(options.RecordElement)
	check(options.IndexAttribute)
	for name := range options.RootAttributes {
		if !strings.HasPrefix(name, "xmlns:") {
			check(name)
		}
	}
	for _, f := range catalog.Fields {
		check(f.Name)
	}

	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("invalid XML names: %s", strings.Join(bad, ", "))
	}
	return nil
}

// createSimpleElement creates a simple XML element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	buffer.WriteString(strings.Repeat(indent, level))

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)
	for _, attr := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value)))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		buffer.WriteString(strings.Repeat(indent, level))
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes text for element content and attribute values.
func escapeXML(s string) string {
	var buffer bytes.Buffer
	// EscapeText only fails when the writer does; bytes.Buffer never does.
	_ = xml.EscapeText(&buffer, []byte(s))
	return buffer.String()
}
