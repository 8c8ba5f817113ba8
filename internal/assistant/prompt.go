package assistant

import (
	"strings"

	"github.com/vantag/assistant-gateway/internal/quota"
)

// promptTemplate holds the building blocks of the system turn for one
// locale. Keeping both locales in one table keeps them behaviorally
// symmetric as the tool set and tier policies evolve.
type promptTemplate struct {
	intro             string
	languageDirective string
	paidGuidance      string
	freeGuidance      string
	toolDirective     string
}

var promptTemplates = map[Locale]promptTemplate{
	LocaleTR: {
		intro: "Sen Vantag uygulamasının kişisel finans asistanısın. " +
			"Kullanıcıların harcamalarını anlamalarına ve paralarını daha bilinçli " +
			"yönetmelerine yardım edersin.",
		languageDirective: "Kullanıcı hangi dilde yazarsa yazsın, TÜM yanıtlarını " +
			"her zaman Türkçe ver.",
		paidGuidance: "Kullanıcı premium üye. Harcama verilerine dayanarak ayrıntılı, " +
			"kişiye özel ve somut finansal değerlendirmeler yapabilirsin: kategori " +
			"bazlı analizler, tasarruf önerileri ve bütçe planları sun.",
		freeGuidance: "Kullanıcı ücretsiz planda. Yanıtlarını 2-3 cümleyle sınırla. " +
			"Belirli ve uygulanabilir finansal tavsiye verme, kalıcı tasarruf planı " +
			"oluşturma; genel ve kısa bilgilendirmeyle yetin.",
		toolDirective: "Kullanıcının finansal verileriyle ilgili her soruda, yanıt " +
			"vermeden önce uygun aracı çağır. Araç çağırmayı denemeden kullanıcının " +
			"verilerini bilmediğini asla söyleme.",
	},
	LocaleEN: {
		intro: "You are the personal finance assistant of the Vantag app. " +
			"You help users understand their spending and manage their money " +
			"more deliberately.",
		languageDirective: "Always reply in English for ALL of your output, " +
			"regardless of the language the user writes in.",
		paidGuidance: "The user is a premium member. You may give detailed, " +
			"personalized and specific financial assessments grounded in their " +
			"spending data: per-category analyses, saving suggestions and budget plans.",
		freeGuidance: "The user is on the free plan. Keep answers to 2-3 sentences. " +
			"Do not give specific actionable financial advice and do not create " +
			"persistent savings plans; stick to short, general guidance.",
		toolDirective: "For any question that depends on the user's financial data, " +
			"call the appropriate tool before answering. Never claim you don't know " +
			"the user's data without first attempting a tool call.",
	},
}

// BuildSystemPrompt assembles the system turn from the tier and locale axes.
func BuildSystemPrompt(tier quota.Tier, locale Locale) string {
	t, ok := promptTemplates[locale]
	if !ok {
		t = promptTemplates[LocaleTR]
	}

	guidance := t.freeGuidance
	if tier == quota.TierPro || tier == quota.TierLifetime {
		guidance = t.paidGuidance
	}

	return strings.Join([]string{
		t.intro,
		t.languageDirective,
		guidance,
		t.toolDirective,
	}, "\n\n")
}
