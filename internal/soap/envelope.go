// Package soap exposes the oscars operations as SOAP 1.1 document-style calls.
package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Namespaces used on the wire.
const (
	EnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	Namespace  = "urn:movies:oscars"
)

// Fault codes defined by SOAP 1.1.
const (
	FaultClient = "soapenv:Client"
	FaultServer = "soapenv:Server"
)

// Fault is a SOAP 1.1 fault body.
type Fault struct {
	XMLName xml.Name `xml:"soapenv:Fault"`
	Code    string   `xml:"faultcode"`
	String  string   `xml:"faultstring"`
}

func (f *Fault) Error() string {
	return f.Code + ": " + f.String
}

func clientFault(format string, args ...any) *Fault {
	return &Fault{Code: FaultClient, String: fmt.Sprintf(format, args...)}
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	NS      string   `xml:"xmlns:soapenv,attr"`
	Body    struct {
		Content any
	} `xml:"soapenv:Body"`
}

// encodeEnvelope wraps content in a SOAP envelope.
func encodeEnvelope(content any) ([]byte, error) {
	env := responseEnvelope{NS: EnvelopeNS}
	env.Body.Content = content
	payload, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// openBody walks an incoming envelope up to the first element inside Body and
// returns the decoder positioned right after that element's start tag.
// Namespace prefixes declared on Envelope or Body stay in scope.
func openBody(r io.Reader) (*xml.Decoder, xml.StartElement, error) {
	dec := xml.NewDecoder(r)
	depth := 0
	inBody := false
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, xml.StartElement{}, clientFault("envelope has no body element")
			}
			return nil, xml.StartElement{}, clientFault("malformed XML: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 1:
				if t.Name.Space != EnvelopeNS || t.Name.Local != "Envelope" {
					return nil, xml.StartElement{}, clientFault("root element must be a SOAP 1.1 Envelope")
				}
			case depth == 2 && t.Name.Space == EnvelopeNS && t.Name.Local == "Body":
				inBody = true
			case depth == 2:
				if err := dec.Skip(); err != nil {
					return nil, xml.StartElement{}, clientFault("malformed XML: %v", err)
				}
				depth--
			case inBody && depth == 3:
				return dec, t, nil
			}
		case xml.EndElement:
			if inBody && depth == 2 {
				return nil, xml.StartElement{}, clientFault("SOAP body is empty")
			}
			depth--
		}
	}
}
