package dialog

import "strings"

const (
	msgGreeting       = "Pro ovládání pomocí řeči zmáčkni tlačítko mikrofonu"
	msgFarewell       = "Ukončuji dialog."
	msgFarewellSpoken = "Děkuji, končím."
	msgNotUnderstood  = "Nerozuměl jsem, co chcete ovládat. Můžete to zkusit znovu?"
	msgCancelled      = "Akce byla zrušena."
	msgUndone         = "Poslední údaj byl vrácen zpět."
	msgUndoExhausted  = "Žádný údaj už nelze vrátit zpět. Akce byla zrušena."
	msgTryAgain       = "Zkuste to znovu."
	msgExecuting      = "Provádím akci."
	msgSayCommand     = "Řekněte příkaz."
	msgListenMiss     = "Nerozuměl jsem. Zkuste to znovu."
	msgHistory        = "Historie požadavků:"
	msgUnsupported    = "Tento typ dotazu zatím není podporován."
)

var questions = map[string]string{
	SlotAction:      "Jakou akci mám provést - zapnutí, vypnutí, nebo se chcete zeptat?",
	SlotDevice:      "Jaké zařízení myslíte?",
	SlotBrightness:  "Jak silné světlo si přejete?",
	SlotTemperature: "Na kolik stupňů?",
	SlotQueryType:   "Na co se chcete zeptat - stav, teplota, jas nebo barva?",
	SlotScene:       "Jakou scénu chcete aktivovat?",
}

// Ask joins the questions for the given slots. Slots without a question
// are skipped.
func Ask(slots []string) string {
	var out []string
	for _, s := range slots {
		if q, ok := questions[s]; ok {
			out = append(out, q)
		}
	}
	return strings.Join(out, " ")
}

// Question is what the assistant asks next for f.
func Question(f *Frame) string {
	missing := f.MissingSlots()
	if len(missing) == 0 {
		return ""
	}
	if !f.decl.AskAll {
		missing = missing[:1]
	}
	return Ask(missing)
}
