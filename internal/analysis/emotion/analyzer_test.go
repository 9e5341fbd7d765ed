package emotion

import "testing"

func TestAnalyzeThaiHappyText(t *testing.T) {
	cand := Analyze("ฉันมีความสุขมาก")
	if cand.Label != Idle {
		t.Fatalf("expected idle/happy label, got %s", cand.Label)
	}
	if cand.Confidence <= 0.3 {
		t.Fatalf("expected boosted confidence for keyword hit, got %f", cand.Confidence)
	}
}

func TestAnalyzeThaiSadText(t *testing.T) {
	cand := Analyze("วันนี้เศร้ามาก อยากร้องไห้")
	if cand.Label != Sad {
		t.Fatalf("expected sad label, got %s", cand.Label)
	}
}

func TestAnalyzeEnglishAngryText(t *testing.T) {
	cand := Analyze("I am so angry right now, this is the worst")
	if cand.Label != Angry {
		t.Fatalf("expected angry label, got %s", cand.Label)
	}
}

func TestAnalyzeSurpriseQuestionMark(t *testing.T) {
	cand := Analyze("อะไรนะ?!")
	if cand.Label != Surprise {
		t.Fatalf("expected surprise label, got %s", cand.Label)
	}
}

func TestAnalyzeLaughNumberSpeak(t *testing.T) {
	cand := Analyze("5555555")
	if cand.Label != Idle {
		t.Fatalf("expected idle/happy label for laugh token, got %s", cand.Label)
	}
}

func TestAnalyzeNoSignalDefaultsToIdle(t *testing.T) {
	cand := Analyze("พรุ่งนี้ประชุมกี่โมง")
	if cand.Label != Idle {
		t.Fatalf("expected neutral default, got %s", cand.Label)
	}
	if cand.Confidence >= 0.5 {
		t.Fatalf("expected low confidence without signal, got %f", cand.Confidence)
	}
}

func TestAnalyzeConfidenceRange(t *testing.T) {
	for _, text := range []string{"", "ดีใจ!!!", "angry angry angry hate hate hate worst!!!"} {
		cand := Analyze(text)
		if cand.Confidence < 0 || cand.Confidence > 1 {
			t.Fatalf("confidence out of range for %q: %f", text, cand.Confidence)
		}
	}
}
