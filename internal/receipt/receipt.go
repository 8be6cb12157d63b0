// Package receipt renders the shareable ticket receipt image sellers send
// to buyers over WhatsApp.
package receipt

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// SpanishMonths maps time.Month-1 to its Spanish name. Receipts are
// rendered for a Spanish-speaking audience.
var SpanishMonths = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatDate renders t like "2 de enero de 2026".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), SpanishMonths[t.Month()-1], t.Year())
}

// Data is everything printed on a receipt.
type Data struct {
	RaffleName  string
	ShortID     string
	BuyerName   string
	Numbers     []string
	Price       int64
	Status      string
	PaymentDate *time.Time
	// Link is encoded as a QR code when set.
	Link string
}

const (
	imgWidth   = 420
	lineHeight = 22
	marginTop  = 48
	qrSize     = 140
)

// Render draws the receipt. The layout is deliberately plain: centered
// lines of text over white, with a QR code at the bottom when a link is
// available.
func Render(d Data) (image.Image, error) {
	lines := buildLines(d)

	height := marginTop + len(lines)*lineHeight + 40
	if d.Link != "" {
		height += qrSize + 20
	}
	img := image.NewRGBA(image.Rect(0, 0, imgWidth, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	y := marginTop
	for _, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		drawer.Dot = fixed.P((imgWidth-width)/2, y)
		drawer.DrawString(line)
		y += lineHeight
	}

	if d.Link != "" {
		qr, err := qrcode.New(d.Link, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("encode qr: %w", err)
		}
		qrImg := qr.Image(qrSize)
		offset := image.Pt((imgWidth-qrSize)/2, y+10)
		draw.Draw(img, qrImg.Bounds().Add(offset), qrImg, image.Point{}, draw.Over)
	}
	return img, nil
}

// EncodeJPEG serializes the receipt for transport.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func buildLines(d Data) []string {
	lines := []string{
		d.RaffleName,
		fmt.Sprintf("Rifa %s", d.ShortID),
		"",
		fmt.Sprintf("Comprador: %s", d.BuyerName),
		fmt.Sprintf("Numeros: %s", strings.Join(d.Numbers, "  ")),
		fmt.Sprintf("Valor: $%d", d.Price),
	}
	if d.PaymentDate != nil {
		lines = append(lines, fmt.Sprintf("Pagado el %s", FormatDate(*d.PaymentDate)))
	}
	status := "PENDIENTE DE PAGO"
	if d.Status == "paid" {
		status = "PAGADO"
	}
	return append(lines, "", status)
}
