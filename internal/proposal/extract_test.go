package proposal

import "testing"

func TestExtractEquipment_Patterns(t *testing.T) {
	text := `## Levantamento
- 2x Câmera dome
- Sensor de presença - 3 un
* **Leitor facial** (2)
4 unidades de controle remoto
Camera Dome: 5
Valor total: 1500
Temos 2 portões na entrada.
| Item | Qtd |
| Cabo | 100 |`

	got := ExtractEquipment(text)
	want := []Equipment{
		{Name: "Câmera dome", Quantity: 5},
		{Name: "Sensor de presença", Quantity: 3},
		{Name: "Leitor facial", Quantity: 2},
		{Name: "controle remoto", Quantity: 4},
	}
	if len(got) != len(want) {
		t.Fatalf("ExtractEquipment = %+v; want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d = %+v; want %+v", i, got[i], want[i])
		}
	}
}

func TestExtractEquipment_NoMatches(t *testing.T) {
	if got := ExtractEquipment("Bom dia! Como posso ajudar?\n\n"); len(got) != 0 {
		t.Fatalf("expected nothing, got %+v", got)
	}
}
