package xmlwriter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD creates an XSD schema describing the documents Generate
// produces for a catalog.
//
// PARAMETERS:
//   - catalog: The catalog of the document subtype.
//   - options: The same options passed to GenerateWithOptions.
//
// RETURNS:
//   - The XSD document as a byte slice.
//   - An error if a name is not a valid XML name.
//
// TYPE MAPPING:
//   - date, decimal, integer and boolean map to the built-in XSD types.
//   - nip and country are strings restricted by a pattern.
//   - Field patterns are not carried over, since XSD regular expressions
//     use a different dialect.
func GenerateXSD(catalog *types.Catalog, options GenerateOptions) ([]byte, error) {
	if catalog == nil {
		return nil, fmt.Errorf("no catalog given")
	}
	options = applyDefaults(options)
	if err := checkNames(catalog, options); err != nil {
		return nil, err
	}

	var buffer bytes.Buffer

	buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
`)

	buffer.WriteString(fmt.Sprintf(`  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>

`, options.RootElement, options.RecordElement))

	buffer.WriteString(fmt.Sprintf(`  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, options.RecordElement))

	for _, field := range catalog.Fields {
		writeXSDElement(&buffer, field, 4)
	}

	buffer.WriteString(fmt.Sprintf(`      </xs:sequence>
      <xs:attribute name="%s" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

</xs:schema>
`, options.IndexAttribute))

	return buffer.Bytes(), nil
}

// writeXSDElement writes an XSD element definition.
func writeXSDElement(buffer *bytes.Buffer, field types.FieldDefinition, indentLevel int) {
	indent := strings.Repeat("  ", indentLevel)

	minOccurs := "0"
	if field.Required {
		minOccurs = "1"
	}

	pattern := xsdPattern(field.Type)
	if pattern == "" {
		buffer.WriteString(fmt.Sprintf("%s<xs:element name=\"%s\" type=\"%s\" minOccurs=\"%s\"/>\n",
			indent, field.Name, getXSDType(field.Type), minOccurs))
		return
	}

	buffer.WriteString(fmt.Sprintf(`%s<xs:element name="%s" minOccurs="%s">
%s  <xs:simpleType>
%s    <xs:restriction base="xs:string">
%s      <xs:pattern value="%s"/>
%s    </xs:restriction>
%s  </xs:simpleType>
%s</xs:element>
`, indent, field.Name, minOccurs,
		indent, indent,
		indent, pattern,
		indent, indent, indent))
}

// getXSDType maps field types to XSD types.
func getXSDType(fieldType types.FieldType) string {
	switch fieldType {
	case types.FieldInteger:
		return "xs:integer"
	case types.FieldDecimal:
		return "xs:decimal"
	case types.FieldBoolean:
		return "xs:boolean"
	case types.FieldDate:
		return "xs:date"
	default:
		return "xs:string"
	}
}

func xsdPattern(fieldType types.FieldType) string {
	switch fieldType {
	case types.FieldNIP:
		return `\d{10}`
	case types.FieldCountry:
		return `[A-Z]{2}`
	default:
		return ""
	}
}
