package enrichment

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
)

// Annotator is the part of the Cloud Vision client the analyzer uses.
type Annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

const minLogoScore = 0.5

// Australian plates are 2 to 7 characters mixing letters and digits.
var plateRegex = regexp.MustCompile(`^[A-Z0-9]{2,7}$`)

type visionAnalyzer struct {
	client Annotator
}

// NewVisionAnalyzer analyzes photos with Cloud Vision logo, text and colour
// detection. The vehicle model cannot be read this way and is never proposed.
func NewVisionAnalyzer(client Annotator) ImageAnalyzer {
	return &visionAnalyzer{client: client}
}

// NewVisionClient dials Cloud Vision. An empty credentials file falls back to
// application default credentials.
func NewVisionClient(ctx context.Context, credentialsFile string) (*vision.ImageAnnotatorClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return client, nil
}

func (a *visionAnalyzer) AnalyzeImage(ctx context.Context, jpeg []byte) (domain.VehiclePatch, error) {
	var patch domain.VehiclePatch
	if len(jpeg) == 0 {
		return patch, ErrUnsupportedImage
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: jpeg},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_LOGO_DETECTION, MaxResults: 3},
				{Type: visionpb.Feature_TEXT_DETECTION},
				{Type: visionpb.Feature_IMAGE_PROPERTIES},
			},
		}},
	}

	started := time.Now()
	logger.ExternalServiceCall("vision", "BatchAnnotateImages", "bytes", len(jpeg))
	resp, err := a.client.BatchAnnotateImages(ctx, req)
	logger.ExternalServiceResult("vision", "BatchAnnotateImages", started, err)
	if err != nil {
		return patch, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return patch, ErrNoResult
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return patch, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	if brand := bestLogo(r0.LogoAnnotations); brand != "" {
		patch = patch.Set(domain.VehicleMake, brand)
	}
	if plate := findPlate(r0.TextAnnotations); plate != "" {
		patch = patch.Set(domain.VehicleRegNo, plate)
	}
	if colour := dominantColour(r0.ImagePropertiesAnnotation); colour != "" {
		patch = patch.Set(domain.VehicleColour, colour)
	}

	if patch.IsEmpty() {
		return patch, ErrNoResult
	}
	return patch, nil
}

func bestLogo(logos []*visionpb.EntityAnnotation) string {
	var best *visionpb.EntityAnnotation
	for _, l := range logos {
		if l == nil || l.Score < minLogoScore {
			continue
		}
		if best == nil || l.Score > best.Score {
			best = l
		}
	}
	if best == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(best.Description))
}

// findPlate returns the first detected word that looks like a plate. The
// first annotation is the whole text block; its lines are tried after the
// individual words so plates printed with a space still match.
func findPlate(texts []*visionpb.EntityAnnotation) string {
	if len(texts) == 0 {
		return ""
	}
	candidates := make([]string, 0, len(texts))
	for _, t := range texts[1:] {
		if t != nil {
			candidates = append(candidates, t.Description)
		}
	}
	if texts[0] != nil {
		candidates = append(candidates, strings.Split(texts[0].Description, "\n")...)
	}
	for _, c := range candidates {
		if p := plateToken(c); p != "" {
			return p
		}
	}
	return ""
}

func plateToken(s string) string {
	s = strings.ToUpper(strings.NewReplacer(" ", "", "-", "", "·", "").Replace(strings.TrimSpace(s)))
	if !plateRegex.MatchString(s) {
		return ""
	}
	if !strings.ContainsAny(s, "0123456789") || !strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return ""
	}
	return s
}

type namedColour struct {
	name    string
	r, g, b float64
}

var paintColours = []namedColour{
	{"WHITE", 245, 245, 245},
	{"BLACK", 20, 20, 20},
	{"SILVER", 192, 192, 192},
	{"GREY", 110, 110, 110},
	{"RED", 180, 30, 30},
	{"BLUE", 30, 60, 170},
	{"GREEN", 40, 110, 60},
	{"YELLOW", 230, 200, 40},
	{"ORANGE", 230, 120, 30},
	{"BROWN", 110, 70, 40},
	{"BEIGE", 215, 200, 160},
	{"GOLD", 200, 160, 70},
	{"PURPLE", 100, 50, 130},
}

func dominantColour(props *visionpb.ImageProperties) string {
	if props == nil || props.DominantColors == nil {
		return ""
	}
	var best *visionpb.ColorInfo
	for _, c := range props.DominantColors.Colors {
		if c == nil || c.Color == nil {
			continue
		}
		if best == nil || c.Score > best.Score {
			best = c
		}
	}
	if best == nil {
		return ""
	}
	return nearestPaint(float64(best.Color.Red), float64(best.Color.Green), float64(best.Color.Blue))
}

func nearestPaint(r, g, b float64) string {
	name := ""
	bestDist := math.MaxFloat64
	for _, p := range paintColours {
		d := (r-p.r)*(r-p.r) + (g-p.g)*(g-p.g) + (b-p.b)*(b-p.b)
		if d < bestDist {
			bestDist = d
			name = p.name
		}
	}
	return name
}
