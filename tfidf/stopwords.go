package tfidf

import (
	"fmt"
	"strings"
)

// Language 是语料的自然语言，决定停用词表。每个部署必须显式选择一种。
type Language string

const (
	English Language = "english"
	Spanish Language = "spanish"
)

// Languages 返回支持的语言列表。
func Languages() []Language {
	return []Language{English, Spanish}
}

// ParseLanguage 解析配置值；空值与未知值都是错误，不做静默默认。
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, nil
	case Spanish:
		return Spanish, nil
	case "":
		return "", fmt.Errorf("tfidf: language is required (one of %v)", Languages())
	default:
		return "", fmt.Errorf("tfidf: unsupported language %q (one of %v)", s, Languages())
	}
}

// StopWords 返回语言对应的停用词集合。
func StopWords(lang Language) (map[string]struct{}, error) {
	var words string
	switch lang {
	case English:
		words = englishStopWords
	case Spanish:
		words = spanishStopWords
	default:
		return nil, fmt.Errorf("tfidf: unsupported language %q (one of %v)", lang, Languages())
	}
	fields := strings.Fields(words)
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set, nil
}

const englishStopWords = `
a about above across after afterwards again against all almost alone along already also
although always am among amongst amoungst amount an and another any anyhow anyone anything
anyway anywhere are around as at back be became because become becomes becoming been before
beforehand behind being below beside besides between beyond bill both bottom but by call can
cannot cant co con could couldnt cry de describe detail do done down due during each eg eight
either eleven else elsewhere empty enough etc even ever every everyone everything everywhere
except few fifteen fifty fill find fire first five for former formerly forty found four from
front full further get give go had has hasnt have he hence her here hereafter hereby herein
hereupon hers herself him himself his how however hundred i ie if in inc indeed interest into
is it its itself keep last latter latterly least less ltd made many may me meanwhile might mill
mine more moreover most mostly move much must my myself name namely neither never nevertheless
next nine no nobody none noone nor not nothing now nowhere of off often on once one only onto
or other others otherwise our ours ourselves out over own part per perhaps please put rather re
same see seem seemed seeming seems serious several she should show side since sincere six sixty
so some somehow someone something sometime sometimes somewhere still such system take ten than
that the their them themselves then thence there thereafter thereby therefore therein thereupon
these they thick thin third this those though three through throughout thru thus to together
too top toward towards twelve twenty two un under until up upon us very via was we well were
what whatever when whence whenever where whereafter whereas whereby wherein whereupon wherever
whether which while whither who whoever whole whom whose why will with within without would yet
you your yours yourself yourselves
`

const spanishStopWords = `
de la que el en y a los del se las por un para con no una su al lo como más pero sus le ya o
este sí porque esta entre cuando muy sin sobre también me hasta hay donde quien desde todo nos
durante todos uno les ni contra otros ese eso ante ellos e esto mí antes algunos qué unos yo
otro otras otra él tanto esa estos mucho quienes nada muchos cual poco ella estar estas algunas
algo nosotros mi mis tú te ti tu tus ellas nosotras vosotros vosotras os mío mía míos mías tuyo
tuya tuyos tuyas suyo suya suyos suyas nuestro nuestra nuestros nuestras vuestro vuestra
vuestros vuestras esos esas estoy estás está estamos estáis están esté estés estemos estéis
estén estaré estarás estará estaremos estaréis estarán estaba estabas estábamos estabais
estaban estuve estuviste estuvo estuvimos estuvisteis estuvieron he has ha hemos habéis han
haya hayas hayamos hayáis hayan habré habrás habrá habremos habréis habrán había habías
habíamos habíais habían hube hubiste hubo hubimos hubisteis hubieron soy eres es somos sois son
sea seas seamos seáis sean seré serás será seremos seréis serán era eras éramos erais eran fui
fuiste fue fuimos fuisteis fueron tengo tienes tiene tenemos tenéis tienen tenga tengas tengamos
tengáis tengan tendré tendrás tendrá tendremos tendréis tendrán tenía tenías teníamos teníais
tenían tuve tuviste tuvo tuvimos tuvisteis tuvieron
`
