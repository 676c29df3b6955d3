package format

import (
    "encoding/xml"
    "io"
    "strings"
)

// xmlElementMaps streams raw and converts every <leaf> element into a generic
// map following the same shape the JSON paths produce: attributes and child
// elements become keys, text-only children become string values, repeated
// children collapse into arrays.
func xmlElementMaps(raw, leaf string) ([]map[string]any, error) {
    dec := xml.NewDecoder(strings.NewReader(raw))
    out := []map[string]any{}
    for {
        tok, err := dec.Token()
        if err == io.EOF { break }
        if err != nil {
            if len(out) > 0 { return out, nil }
            return nil, err
        }
        start, ok := tok.(xml.StartElement)
        if !ok || start.Name.Local != leaf { continue }
        v, err := xmlElementValue(dec, start)
        if err != nil { return out, err }
        if m, ok := v.(map[string]any); ok { out = append(out, m) }
    }
    return out, nil
}

// xmlElementValue consumes one element. Elements with neither attributes nor
// child elements reduce to their text content.
func xmlElementValue(dec *xml.Decoder, start xml.StartElement) (any, error) {
    m := map[string]any{}
    for _, a := range start.Attr {
        m[a.Name.Local] = a.Value
    }
    var text strings.Builder
    for {
        tok, err := dec.Token()
        if err != nil { return nil, err }
        switch t := tok.(type) {
        case xml.StartElement:
            child, err := xmlElementValue(dec, t)
            if err != nil { return nil, err }
            addXMLChild(m, t.Name.Local, child)
        case xml.CharData:
            text.Write(t)
        case xml.EndElement:
            s := strings.TrimSpace(text.String())
            if len(m) == 0 { return s, nil }
            if s != "" { m["#text"] = s }
            return m, nil
        }
    }
}

func addXMLChild(m map[string]any, name string, v any) {
    prev, ok := m[name]
    if !ok {
        m[name] = v
        return
    }
    if arr, ok := prev.([]any); ok {
        m[name] = append(arr, v)
        return
    }
    m[name] = []any{prev, v}
}
