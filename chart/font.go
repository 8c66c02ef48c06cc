package chart

import (
	"os"
	"strings"
	"sync"

	"github.com/carusyte/stockchart/util"
	"github.com/pkg/errors"
	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot/font"
)

//FontSet lists Chinese capable font families, most preferred first, and the
//font files to load them from when a renderer needs the glyph data.
type FontSet struct {
	Families []string
	Files    []string
}

var platformFonts = map[string]FontSet{
	"darwin": {
		Families: []string{"PingFang SC", "Heiti SC", "STHeiti", "Arial Unicode MS", "Noto Sans CJK SC"},
		Files: []string{
			"/System/Library/Fonts/PingFang.ttc",
			"/System/Library/Fonts/STHeiti Medium.ttc",
			"/System/Library/Fonts/STHeiti Light.ttc",
			"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
			"/Library/Fonts/Arial Unicode.ttf",
		},
	},
	"windows": {
		Families: []string{"SimHei", "Microsoft YaHei", "SimSun", "Arial Unicode MS", "Noto Sans CJK SC"},
		Files: []string{
			`C:\Windows\Fonts\simhei.ttf`,
			`C:\Windows\Fonts\msyh.ttc`,
			`C:\Windows\Fonts\simsun.ttc`,
			`C:\Windows\Fonts\ARIALUNI.TTF`,
		},
	},
	"linux": {
		Families: []string{"Noto Sans CJK SC", "Noto Sans CJK TC", "WenQuanYi Micro Hei", "AR PL UMing CN", "DejaVu Sans"},
		Files: []string{
			"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
			"/usr/share/fonts/wenquanyi/wqy-microhei/wqy-microhei.ttc",
			"/usr/share/fonts/truetype/arphic/uming.ttc",
		},
	},
}

//DefaultFonts is used on platforms missing from the font table.
var DefaultFonts = FontSet{Families: []string{"sans-serif"}}

//LookupFonts returns the font set of the given GOOS style platform name.
func LookupFonts(platform string) (FontSet, bool) {
	fs, ok := platformFonts[strings.ToLower(platform)]
	return fs, ok
}

//PlatformFonts returns the font set of the running platform, or DefaultFonts
//with a warning when the platform is not covered.
func PlatformFonts() FontSet {
	p := util.Platform()
	if fs, ok := LookupFonts(p.OS); ok {
		return fs
	}
	log.Warnf("no Chinese font configured for platform %s %s, using default font %v; "+
		"Chinese characters may not display correctly", p.OS, p.Platform, DefaultFonts.Families)
	return DefaultFonts
}

// cjkFont is the key the loaded CJK face is registered under in font.DefaultCache.
var cjkFont = font.Font{Typeface: "StockchartCJK", Variant: "Sans"}

var faces = struct {
	sync.Mutex
	loaded map[string]bool
}{loaded: make(map[string]bool)}

// loadCJKFont registers the first readable font file with the plot font cache
// and returns the font to reference it by.
func loadCJKFont(files []string) (font.Font, error) {
	faces.Lock()
	defer faces.Unlock()
	for _, f := range files {
		if faces.loaded[f] {
			return fontFor(f), nil
		}
	}
	var errs []string
	for _, f := range files {
		b, e := os.ReadFile(f)
		if e != nil {
			if !os.IsNotExist(e) {
				errs = append(errs, e.Error())
			}
			continue
		}
		ttf, e := parseFont(b)
		if e != nil {
			errs = append(errs, f+": "+e.Error())
			continue
		}
		fnt := fontFor(f)
		font.DefaultCache.Add(font.Collection{{Font: fnt, Face: ttf}})
		faces.loaded[f] = true
		log.Debugf("loaded font %s", f)
		return fnt, nil
	}
	return font.Font{}, errors.Errorf("none of the font files is usable: %v %s", files, strings.Join(errs, "; "))
}

func fontFor(file string) font.Font {
	f := cjkFont
	f.Typeface = font.Typeface(string(cjkFont.Typeface) + "-" + file)
	return f
}

func parseFont(b []byte) (*opentype.Font, error) {
	if coll, e := opentype.ParseCollection(b); e == nil && coll.NumFonts() > 0 {
		return coll.Font(0)
	}
	return opentype.Parse(b)
}
