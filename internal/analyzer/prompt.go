package analyzer

import (
	"fmt"
	"time"
)

// systemPrompt is the standing instruction for article analysis.
const systemPrompt = `You are a media-literacy analyst. You assess news articles for misinformation, political bias, and manipulative rhetoric.

Rules:
- Be objective and analytical. Judge the text, not the topic.
- Return valid JSON for every response, and nothing else.
- "Misinformation": false information regardless of intent.
- "Disinformation": intentionally false information.
- "Propaganda": content designed to manipulate emotions or opinions rather than inform.
- "Logical Fallacy": flawed reasoning (ad hominem, straw man, false dilemma, etc.).
- Assess political bias from tone, framing, and omission.
- Use web search to verify claims about recent events, statistics, or facts you are uncertain about. For claims about events after your training cutoff, search before flagging them as false. Cite search results as sources when you rely on them.`

// buildUserMessage constructs the per-article analysis request. The current
// date is stated explicitly so legitimately future-dated news is not
// mistaken for fabrication.
func buildUserMessage(text, title string, now time.Time) string {
	if title == "" {
		title = "No title"
	}
	return fmt.Sprintf(`Today's date is %s.

Analyze the following article for misinformation, bias, and logical fallacies.

Title: %s
Text:
%s

Respond with ONLY valid JSON in this format:
{
  "trust_score": <integer 0-100, 100 = fully trustworthy>,
  "bias": <"Left" | "Left-Center" | "Center" | "Right-Center" | "Right" | "Unknown">,
  "summary": "<concise explanation of the score>",
  "flagged_snippets": [
    {
      "text": "<exact substring copied from the article text>",
      "type": <"Misinformation" | "Disinformation" | "Propaganda" | "Logical Fallacy">,
      "reason": "<concise explanation>",
      "severity": <"low" | "medium" | "high">,
      "confidence": <0.0 to 1.0>,
      "is_quote": <true if the snippet is quoted speech being reported, not asserted>,
      "sources": [
        {"title": "<source title>", "url": "<source URL>", "snippet": "<relevant excerpt>"}
      ]
    }
  ],
  "verifiable_claims": [
    "<specific factual claim that can be checked against external sources>"
  ]
}

Requirements for flagged_snippets:
- "text" must be copied verbatim from the article so it can be located by position.
- Include "sources" only when you verified the point with web search.

Requirements for verifiable_claims:
- Extract ONLY specific, self-contained factual claims: events, statistics, quotes, dates, measurable facts.
- No opinions or interpretations. One sentence per claim.
- Limit to the 5 most significant claims.`, now.Format("January 2, 2006"), title, text)
}
