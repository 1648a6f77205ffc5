package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// sealedPrefix 加密后的 payload 前缀，用于区分明文 JSON
var sealedPrefix = []byte("enc:v1:")

// ErrKeyTooShort 密钥长度不足
var ErrKeyTooShort = errors.New("key must be at least 32 bytes long")

// newGCM 由任意长度密钥派生 AES-256-GCM
func newGCM(key string) (cipher.AEAD, error) {
	if len(key) < 32 {
		return nil, ErrKeyTooShort
	}
	keyHash := sha256.Sum256([]byte(key))

	block, err := aes.NewCipher(keyHash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt 加密敏感数据（AES-256-GCM），返回 base64
func Encrypt(plaintext string, key string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt 解密 Encrypt 的输出
func Decrypt(ciphertext string, key string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, body := raw[:nonceSize], raw[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// PayloadCodec section payload 的存储编码
// 未配置密钥时以明文 JSON 存储，读取时兼容两种格式
type PayloadCodec struct {
	key string
}

// NewPayloadCodec 创建编码器，key 为空表示不加密
func NewPayloadCodec(key string) (*PayloadCodec, error) {
	if key != "" && len(key) < 32 {
		return nil, ErrKeyTooShort
	}
	return &PayloadCodec{key: key}, nil
}

// Encrypted 是否启用加密
func (c *PayloadCodec) Encrypted() bool {
	return c != nil && c.key != ""
}

// Seal 序列化并（可选）加密
func (c *PayloadCodec) Seal(v interface{}) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	if !c.Encrypted() {
		return plain, nil
	}

	sealed, err := Encrypt(string(plain), c.key)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, sealedPrefix...), sealed...), nil
}

// Open 解密（如需要）并反序列化
func (c *PayloadCodec) Open(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}

	plain := data
	if bytes.HasPrefix(data, sealedPrefix) {
		if !c.Encrypted() {
			return errors.New("payload is encrypted but no key is configured")
		}
		decrypted, err := Decrypt(string(data[len(sealedPrefix):]), c.key)
		if err != nil {
			return err
		}
		plain = []byte(decrypted)
	}

	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// HashSecret 哈希共享密钥（bcrypt）
func HashSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// VerifySecret 校验共享密钥
func VerifySecret(secret string, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}
