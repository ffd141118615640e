package feedback

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	en := language.English

	message.SetString(en, string(KeyDragAndRelease), "Drag and release the Poké Ball!")
	message.SetString(en, string(KeyTryAgain), "Try again! Drag the Poké Ball!")
	message.SetString(en, string(KeyMissed), "Missed! Try again!")
	message.SetString(en, string(KeyCaptureFailed), "It broke free! Try again!")
	message.SetString(en, string(KeyCapturedLoading), "Captured! Loading data...")
	message.SetString(en, string(KeyCapturedName), "You caught %s!")
	message.SetString(en, string(KeyMetadataError), "Couldn't load the Pokémon. Try again.")
	message.SetString(en, string(KeyFetchError), "Couldn't fetch the Pokémon. Try again.")
	message.SetString(en, string(KeyPlayAgain), "Press Play to catch another Pokémon!")
	message.SetString(en, string(KeyForceMeter), "Force %d%%")

	message.SetString(en, "grade.too_weak", "Throw too weak!")
	message.SetString(en, "grade.off_target", "Too far off target!")
	message.SetString(en, "grade.near_miss", "So close! Try again!")
	message.SetString(en, "grade.perfect", "PERFECT CATCH!")
	message.SetString(en, "grade.excellent", "Excellent catch!")
	message.SetString(en, "grade.good", "Nice catch!")
	message.SetString(en, "grade.captured", "Caught!")

	pt := PortugueseBR

	message.SetString(pt, string(KeyDragAndRelease), "Arraste e solte a Pokébola!")
	message.SetString(pt, string(KeyTryAgain), "Tente novamente! Arraste a Pokébola!")
	message.SetString(pt, string(KeyMissed), "Errou! Tente novamente!")
	message.SetString(pt, string(KeyCaptureFailed), "Falhou! Tente novamente!")
	message.SetString(pt, string(KeyCapturedLoading), "Capturado! Carregando dados...")
	message.SetString(pt, string(KeyCapturedName), "Você capturou %s!")
	message.SetString(pt, string(KeyMetadataError), "Erro ao carregar Pokémon. Tente novamente.")
	message.SetString(pt, string(KeyFetchError), "Erro ao buscar Pokémon. Tente novamente.")
	message.SetString(pt, string(KeyPlayAgain), "Clique em 'Jogar' para capturar outro Pokémon!")
	message.SetString(pt, string(KeyForceMeter), "Força %d%%")

	message.SetString(pt, "grade.too_weak", "Arremesso muito fraco!")
	message.SetString(pt, "grade.off_target", "Muito longe do alvo!")
	message.SetString(pt, "grade.near_miss", "Quase! Tente novamente!")
	message.SetString(pt, "grade.perfect", "CAPTURA PERFEITA!")
	message.SetString(pt, "grade.excellent", "Excelente captura!")
	message.SetString(pt, "grade.good", "Boa captura!")
	message.SetString(pt, "grade.captured", "Capturado!")
}
