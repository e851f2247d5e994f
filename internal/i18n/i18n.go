package i18n

import (
	"context"

	"github.com/PauloHFS/faceauth/internal/contextkeys"
)

type Key string

const (
	FieldsRequired     Key = "fields_required"
	InvalidInput       Key = "invalid_input"
	UserExists         Key = "user_exists"
	Registered         Key = "registered"
	InvalidImage       Key = "invalid_image"
	ImageTooSmall      Key = "image_too_small"
	InvalidCredentials Key = "invalid_credentials"
	FaceRequired       Key = "face_required"
	FacePending        Key = "face_pending"
	FaceNotRecognized  Key = "face_not_recognized"
	FaceUnavailable    Key = "face_unavailable"
	LoginSuccess       Key = "login_success"
	LoggedOut          Key = "logged_out"
	Welcome            Key = "welcome"
	Unauthorized       Key = "unauthorized"
	Forbidden          Key = "forbidden"
	NotFound           Key = "not_found"
	TooManyRequests    Key = "too_many_requests"
	InternalError      Key = "internal_error"
)

type Translation map[Key]string

var enUS = Translation{
	FieldsRequired:     "All fields (email, password, username) are required",
	InvalidInput:       "Invalid input",
	UserExists:         "Username or email already exists",
	Registered:         "User registered successfully",
	InvalidImage:       "Invalid image format",
	ImageTooSmall:      "Image data too small",
	InvalidCredentials: "Invalid credentials. Please check your email, username, and password",
	FaceRequired:       "Password verified. Please complete face verification",
	FacePending:        "Please log in with your email and password first",
	FaceNotRecognized:  "Face not recognized. Please try again or use email/password login.",
	FaceUnavailable:    "Face recognition is temporarily unavailable. Please use email/password login.",
	LoginSuccess:       "Login successful",
	LoggedOut:          "Logged out",
	Welcome:            "Welcome",
	Unauthorized:       "Please log in",
	Forbidden:          "Access denied",
	NotFound:           "Not found",
	TooManyRequests:    "Too many requests",
	InternalError:      "Internal server error",
}

var ptBR = Translation{
	FieldsRequired:     "Todos os campos (email, senha, usuário) são obrigatórios",
	InvalidInput:       "Dados inválidos",
	UserExists:         "Usuário ou e-mail já cadastrado",
	Registered:         "Usuário registrado com sucesso",
	InvalidImage:       "Formato de imagem inválido",
	ImageTooSmall:      "Imagem muito pequena",
	InvalidCredentials: "Credenciais inválidas. Verifique e-mail, usuário e senha",
	FaceRequired:       "Senha verificada. Conclua a verificação facial",
	FacePending:        "Entre com e-mail e senha primeiro",
	FaceNotRecognized:  "Rosto não reconhecido. Tente novamente ou entre com e-mail e senha.",
	FaceUnavailable:    "O reconhecimento facial está indisponível no momento. Entre com e-mail e senha.",
	LoginSuccess:       "Login realizado com sucesso",
	LoggedOut:          "Sessão encerrada",
	Welcome:            "Bem-vindo",
	Unauthorized:       "Faça login para continuar",
	Forbidden:          "Acesso negado",
	NotFound:           "Não encontrado",
	TooManyRequests:    "Muitas requisições",
	InternalError:      "Erro interno do servidor",
}

// Get retorna as traduções baseadas no idioma do contexto
func Get(ctx context.Context) Translation {
	locale, _ := ctx.Value(contextkeys.LocaleKey).(string)
	switch locale {
	case "pt":
		return ptBR
	default:
		return enUS
	}
}

// T traduz key, caindo para a própria chave quando não há texto.
func T(ctx context.Context, key Key) string {
	if msg, ok := Get(ctx)[key]; ok {
		return msg
	}
	if msg, ok := enUS[key]; ok {
		return msg
	}
	return string(key)
}
