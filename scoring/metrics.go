package scoring

import (
	"strings"

	"github.com/asim800/chatLangGraph/core"
)

// scoreLength rewards sustained exchanges with diminishing returns: the
// metric saturates once the history reaches LengthSaturation messages.
func scoreLength(cfg Config, in Input) float64 {
	if cfg.LengthSaturation <= 0 {
		return NeutralScore
	}
	return float64(len(in.Messages)) / float64(cfg.LengthSaturation)
}

// scoreQuality is a heuristic over assistant content: substantive length and
// clarifying questions both indicate an engaged responder.
func scoreQuality(cfg Config, in Input) float64 {
	var assistant []core.Message
	for _, m := range in.Messages {
		if m.Role == core.RoleAssistant {
			assistant = append(assistant, m)
		}
	}
	if len(assistant) == 0 {
		return 0
	}

	var totalLen float64
	var questions int
	for _, m := range assistant {
		totalLen += float64(len(m.Content))
		if strings.Contains(m.Content, "?") {
			questions++
		}
	}
	avgLen := totalLen / float64(len(assistant))

	lengthScore := clamp01(avgLen / cfg.QualityLengthNorm)
	questionScore := clamp01(float64(questions) / float64(len(assistant)))

	return lengthScore*0.6 + questionScore*0.4
}

// scoreUserEngagement measures the user's active participation: message
// length and the rate at which the user keeps responding to assistant
// questions.
func scoreUserEngagement(cfg Config, in Input) float64 {
	var userMsgs []core.Message
	var assistantQuestions int
	for _, m := range in.Messages {
		switch m.Role {
		case core.RoleUser:
			userMsgs = append(userMsgs, m)
		case core.RoleAssistant:
			if strings.Contains(m.Content, "?") {
				assistantQuestions++
			}
		}
	}
	if len(userMsgs) == 0 {
		return 0
	}

	var totalLen float64
	for _, m := range userMsgs {
		totalLen += float64(len(m.Content))
	}
	lengthScore := clamp01(totalLen / float64(len(userMsgs)) / cfg.UserLengthNorm)

	// Follow-up user turns beyond the opener count as responses.
	responses := len(userMsgs) - 1
	denom := assistantQuestions
	if denom < 1 {
		denom = 1
	}
	responseRate := clamp01(float64(responses) / float64(denom))

	return lengthScore*0.4 + responseRate*0.6
}

// scoreFlow combines role alternation with inter-message timing: each
// same-role repetition and each gap outside [MinGap, MaxGap] chips away at a
// perfect score.
func scoreFlow(cfg Config, in Input) float64 {
	msgs := in.Messages
	if len(msgs) < 2 {
		return 0
	}

	pattern := 1.0
	timing := 1.0
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Role == msgs[i-1].Role {
			pattern -= 0.1
		}
		if msgs[i].Timestamp.IsZero() || msgs[i-1].Timestamp.IsZero() {
			continue
		}
		gap := msgs[i].Timestamp.Sub(msgs[i-1].Timestamp)
		if gap > cfg.MaxGap || gap < cfg.MinGap {
			timing -= 0.05
		}
	}

	return clamp01(pattern)*0.7 + clamp01(timing)*0.3
}

// scoreStickiness rewards return visits: session duration near the optimum,
// the number of distinct prior sessions, and how recently the user last
// visited. Components without data fall back to a neutral 0.5 so a first
// session is neither rewarded nor punished.
func scoreStickiness(cfg Config, in Input) float64 {
	duration := 0.5
	msgs := in.Messages
	if len(msgs) >= 2 && !msgs[0].Timestamp.IsZero() && !msgs[len(msgs)-1].Timestamp.IsZero() {
		elapsed := msgs[len(msgs)-1].Timestamp.Sub(msgs[0].Timestamp)
		if elapsed >= 0 && cfg.OptimalDuration > 0 {
			if elapsed <= cfg.OptimalDuration {
				duration = float64(elapsed) / float64(cfg.OptimalDuration)
			} else {
				over := elapsed - cfg.OptimalDuration
				duration = max(0.5, 1.0-float64(over)/float64(2*cfg.OptimalDuration))
			}
		}
	}

	returns := 0.5
	if cfg.ReturnSaturation > 0 && in.PriorSessionCount > 0 {
		returns = clamp01(float64(in.PriorSessionCount) / float64(cfg.ReturnSaturation))
	}

	recency := 0.5
	if !in.LastSessionAt.IsZero() && !in.Now.IsZero() && cfg.RecencyWindow > 0 {
		age := in.Now.Sub(in.LastSessionAt)
		if age < 0 {
			age = 0
		}
		recency = clamp01(1.0 - float64(age)/float64(cfg.RecencyWindow))
	}

	return duration*0.4 + returns*0.3 + recency*0.3
}

