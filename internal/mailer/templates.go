package mailer

import (
	"fmt"

	"meldish/internal/identity/models"
)

// VerificationMessage renders the email-verification mail in the user's
// language. Unknown languages fall back to English.
func VerificationMessage(to, language, firstName, verifyURL string) Message {
	if language == models.LanguageJapanese {
		return Message{
			To:      to,
			Subject: "【Meldish】メールアドレスの確認",
			Body: fmt.Sprintf(
				"%s 様\n\n"+
					"Meldishへのご登録ありがとうございます。\n"+
					"以下のリンクをクリックしてメールアドレスを確認してください。\n\n"+
					"%s\n\n"+
					"このリンクの有効期限は24時間です。\n"+
					"心当たりがない場合は、このメールを破棄してください。\n",
				firstName, verifyURL),
		}
	}
	return Message{
		To:      to,
		Subject: "Confirm your email address",
		Body: fmt.Sprintf(
			"Hi %s,\n\n"+
				"Thanks for signing up for Meldish.\n"+
				"Please confirm your email address by clicking the link below.\n\n"+
				"%s\n\n"+
				"This link expires in 24 hours.\n"+
				"If you did not sign up, you can safely ignore this email.\n",
			firstName, verifyURL),
	}
}

// InvitationMessage renders the staff-invitation mail in the invitee's
// language. Unknown languages fall back to English.
func InvitationMessage(to, language, firstName, inviteURL string) Message {
	if language == models.LanguageJapanese {
		return Message{
			To:      to,
			Subject: "【Meldish】スタッフ招待のお知らせ",
			Body: fmt.Sprintf(
				"%s 様\n\n"+
					"Meldishのスタッフとして招待されました。\n"+
					"以下のリンクから登録を完了してください。\n\n"+
					"%s\n\n"+
					"この招待の有効期限は7日間です。\n",
				firstName, inviteURL),
		}
	}
	return Message{
		To:      to,
		Subject: "You have been invited to join Meldish",
		Body: fmt.Sprintf(
			"Hi %s,\n\n"+
				"You have been invited to join Meldish as a staff member.\n"+
				"Complete your registration using the link below.\n\n"+
				"%s\n\n"+
				"This invitation expires in 7 days.\n",
			firstName, inviteURL),
	}
}
