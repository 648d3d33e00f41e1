package fakeapi

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/naveenspark/folio/pkg/domain"
)

// renderInvoicePDF lays the invoice out as a single-page PDF 1.4 document
// with one Helvetica text block.
func renderInvoicePDF(inv domain.Invoice) []byte {
	lines := []string{"Facture " + inv.Number, "Date : " + inv.IssuedAt.Format("02/01/2006")}
	if inv.Client != nil {
		lines = append(lines, "Client : "+inv.Client.FullName()+" ("+inv.Client.ClientCode+")")
	}
	lines = append(lines, "")
	for _, it := range inv.Items {
		lines = append(lines, fmt.Sprintf("%s  x%g  %.2f EUR", it.Description, it.Quantity, it.Total()))
	}
	t := inv.Totals()
	lines = append(lines, "",
		fmt.Sprintf("Total HT : %.2f EUR", t.HT),
		fmt.Sprintf("TVA %d%% : %.2f EUR", int(domain.VATRate*100), t.VAT),
		fmt.Sprintf("Total TTC : %.2f EUR", t.TTC))

	var content bytes.Buffer
	content.WriteString("BT /F1 12 Tf 14 TL 56 780 Td\n")
	for _, l := range lines {
		fmt.Fprintf(&content, "(%s) '\n", pdfEscape(l))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes()
}

// pdfEscape escapes a literal string and drops what WinAnsi cannot encode.
func pdfEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20:
		case r < 0x80:
			b.WriteRune(r)
		case r <= 0xFF:
			fmt.Fprintf(&b, "\\%03o", r)
		case r == '€':
			b.WriteString("\\200")
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
