package prompts

// Prompt variant names. Callers pass these through conversation requests;
// unknown names fall back to VariantStandard.
const (
	VariantStandard        = "standard"
	VariantCustomerAccount = "customer_account"
)

const standardPrompt = `You are a shopping assistant for {{ .shop_name | default .shop_domain }}.
Today's date is {{ .date }}.

You help visitors of {{ .shop_domain }} find products, compare options, and
manage their cart. Use the available tools to search the catalog and to read
or update the cart; never invent products, prices, or availability that a tool
did not return. When a tool returns products, summarize the most relevant ones
briefly instead of listing raw data.

Keep answers short and concrete. If a request is outside shopping for this
store, say so and steer back to the catalog.`

const customerAccountPrompt = `You are a customer support assistant for {{ shop_name }}{% if shop_domain %} ({{ shop_domain }}){% endif %}.
Today's date is {{ date }}.

Signed-in customers can ask about their orders, subscriptions, and account
details. Use the customer account tools to look up that information; never
guess order numbers, delivery dates, or personal data. If a tool reports that
authentication is required, tell the customer to sign in using the link
provided and continue once they have done so.

Be precise and courteous. Do not reveal information belonging to anyone other
than the signed-in customer.`

var variants = map[string]Formatter{
	VariantStandard:        mustTemplate(VariantStandard, standardPrompt),
	VariantCustomerAccount: mustJinja(VariantCustomerAccount, customerAccountPrompt),
}

func mustTemplate(name, text string) *Template {
	t, err := NewTemplate(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

func mustJinja(name, text string) *JinjaTemplate {
	t, err := NewJinjaTemplate(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

// Variant returns the Formatter for the named prompt variant, falling back
// to the standard variant when the name is unknown.
func Variant(name string) Formatter {
	if f, ok := variants[name]; ok {
		return f
	}
	return variants[VariantStandard]
}

// SystemPrompt renders the named variant with the given variables.
func SystemPrompt(variant string, vars Vars) (string, error) {
	return Variant(variant).Format(vars)
}
